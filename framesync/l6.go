package framesync

import (
	"io"
	"log/slog"
)

// L6Preamble is the synchronisation pattern at the start of a QZS L6 frame.
var L6Preamble = []byte{0x1a, 0xcf, 0xfc, 0x1d}

// L6FrameLength is the length of a QZS L6 frame: 4 bytes of preamble, the
// PRN, the message type ID, 212 bytes of data and 32 bytes of Reed-Solomon
// parity.
const L6FrameLength = 250

// L6Scanner finds QZS L6 frames.  An L6 frame has a fixed length and no
// checksum of its own (the Reed-Solomon parity is dealt with by the
// receiver), so a frame is accepted as soon as it's complete.
type L6Scanner struct {
	scanner
}

// NewL6Scanner creates a scanner that reads L6 frames from source.
// limit is the buffer limit in bytes (zero for the default).
func NewL6Scanner(source io.Reader, limit int, logger *slog.Logger) *L6Scanner {
	return &L6Scanner{scanner: newScanner(source, limit, L6FrameLength, logger)}
}

// Next returns the next L6 frame, preamble included.
func (s *L6Scanner) Next() ([]byte, error) {
	if err := s.eatUntil(L6Preamble); err != nil {
		return nil, err
	}

	frame := make([]byte, 0, L6FrameLength)
	frame = append(frame, L6Preamble...)
	frame, err := s.read(frame, L6FrameLength-len(L6Preamble))
	if err != nil {
		return nil, err
	}
	return s.accept(frame)
}
