// The framesync package finds message frames in a stream of bytes.  The
// stream may contain frames of the wanted kind interspersed with other
// data, and some frames may be corrupted in transit.
//
// Each scanner works through the same phases: eat bytes until the
// synchronisation pattern turns up, read enough to find the length, read
// the rest of the frame and check it.  If the check fails the scanner
// pushes back everything after the first sync byte and starts looking
// again, so a corrupted frame (or a stray sync byte in some other data)
// costs one frame, not the whole stream.
//
//	scanner := framesync.NewRTCMScanner(os.Stdin, framesync.DefaultBufferLimit, logger)
//	for {
//		frame, err := scanner.Next()
//		if err != nil {
//			if errors.Is(err, framesync.ErrChecksumMismatch) {
//				continue
//			}
//			break // io.EOF, or fatal.
//		}
//		...
//	}
//
// The buffer limit is the number of bytes a scanner will throw away
// without finding a good frame.  Going past it is fatal: the input is not
// the kind of stream the scanner was asked for.  A limit smaller than the
// longest legal frame is raised to that length.
package framesync

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/goblimey/go-cssr/pushback"
)

// DefaultBufferLimit is the default number of bytes a scanner will discard
// between good frames.
const DefaultBufferLimit = 64 * 1024

var (
	// ErrChecksumMismatch means that a candidate frame failed its check.
	// The scanner has already resynchronised, so the caller can carry on.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrBufferExhausted means that the scanner discarded more than the
	// buffer limit without finding a good frame.  It's fatal.
	ErrBufferExhausted = errors.New("buffer exhausted")
)

// IsFatal returns true if err means that the stream can't be parsed any
// further.  End of input is not counted as fatal.
func IsFatal(err error) bool {
	return errors.Is(err, ErrBufferExhausted)
}

// Scanner is implemented by all the frame scanners.
type Scanner interface {
	// Next returns the next complete, checked frame.
	Next() ([]byte, error)
}

// scanner holds the state shared by the frame scanners.
type scanner struct {
	source *pushback.Reader
	limit  int
	logger *slog.Logger

	// skipped counts bytes discarded while looking for a sync pattern.
	skipped uint64
	// dropped counts candidate frames that failed their check.
	dropped uint64
	// sinceFrame counts bytes discarded since the last good frame.
	sinceFrame int
}

// newScanner creates the scanner state.  maxFrame is the longest legal
// frame, the least the limit can be.
func newScanner(source io.Reader, limit, maxFrame int, logger *slog.Logger) scanner {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	if limit < maxFrame {
		limit = maxFrame
	}
	if logger == nil {
		logger = slog.Default()
	}
	return scanner{source: pushback.New(source, 0), limit: limit, logger: logger}
}

// eatUntil discards bytes until the last len(sync) bytes read match sync.
func (s *scanner) eatUntil(sync []byte) error {
	window := make([]byte, 0, len(sync))
	for {
		b, err := s.source.GetNextByte()
		if err != nil {
			return err
		}

		if len(window) == len(sync) {
			copy(window, window[1:])
			window = window[:len(window)-1]
			s.skipped++
			if err := s.discarded(1); err != nil {
				return err
			}
		}
		window = append(window, b)

		if len(window) == len(sync) && string(window) == string(sync) {
			return nil
		}
	}
}

// read appends n more bytes from the source to frame.
func (s *scanner) read(frame []byte, n int) ([]byte, error) {
	for i := 0; i < n; i++ {
		b, err := s.source.GetNextByte()
		if err != nil {
			if err == io.EOF {
				// Part of a frame at the end of the input.
				return frame, io.ErrUnexpectedEOF
			}
			return frame, err
		}
		frame = append(frame, b)
	}
	return frame, nil
}

// discarded counts n bytes thrown away and enforces the buffer limit.
func (s *scanner) discarded(n int) error {
	s.sinceFrame += n
	if s.sinceFrame > s.limit {
		s.logger.Error("no frame found within the buffer limit",
			"discarded", s.sinceFrame, "limit", s.limit)
		return fmt.Errorf("%w: no good frame in %d bytes, limit %d",
			ErrBufferExhausted, s.sinceFrame, s.limit)
	}
	return nil
}

// accept resets the count of discarded bytes and returns the frame.
func (s *scanner) accept(frame []byte) ([]byte, error) {
	s.sinceFrame = 0
	return frame, nil
}

// reject counts a failed frame, pushes back everything after its first byte
// and returns an error describing it.  Only the first byte is discarded.
func (s *scanner) reject(kind string, frame []byte) error {
	s.dropped++
	s.source.PushBack(frame[1:]...)
	s.logger.Warn(kind+" frame rejected", "frame_length", len(frame))
	if err := s.discarded(1); err != nil {
		return err
	}
	return fmt.Errorf("%s frame of %d bytes: %w", kind, len(frame), ErrChecksumMismatch)
}

// truncated handles the end of the input part way through a candidate
// frame.  If another sync pattern turns up after the candidate's own, the
// candidate was not a frame (a stray sync byte, or a corrupted length) and
// it's rejected so that the scan carries on from there.  Otherwise the
// input really does end part way through a frame.
func (s *scanner) truncated(kind string, sync, frame []byte) error {
	if len(frame) > 1 && bytes.Contains(frame[1:], sync) {
		return s.reject(kind, frame)
	}
	return io.ErrUnexpectedEOF
}

// Skipped returns the number of bytes discarded between frames.
func (s *scanner) Skipped() uint64 {
	return s.skipped
}

// Dropped returns the number of candidate frames that failed their check.
func (s *scanner) Dropped() uint64 {
	return s.dropped
}
