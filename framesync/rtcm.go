package framesync

import (
	"errors"
	"io"
	"log/slog"

	"github.com/goblimey/go-cssr/integrity"
	"github.com/goblimey/go-cssr/rtcm3"
)

// MaxRTCMFrameLength is the length of the longest legal RTCM3 frame.
const MaxRTCMFrameLength = rtcm3.LeaderLengthBytes + rtcm3.MaxMessageLength + integrity.CRC24QLengthBytes

// RTCMScanner finds RTCM3 message frames.
type RTCMScanner struct {
	scanner
}

// NewRTCMScanner creates a scanner that reads RTCM3 frames from source.
// limit is the buffer limit in bytes (zero for the default).
func NewRTCMScanner(source io.Reader, limit int, logger *slog.Logger) *RTCMScanner {
	return &RTCMScanner{scanner: newScanner(source, limit, MaxRTCMFrameLength, logger)}
}

// Next returns the next RTCM3 frame, leader and CRC included.
//
// A frame is the start of message byte 0xd3, two bytes containing a 10-bit
// length (the top six bits are reserved), the message and a 3-byte CRC.  A
// 0xd3 byte doesn't guarantee the start of a frame, it may just be some
// binary data, so a frame is only accepted when the CRC checks.  If it
// doesn't, Next returns ErrChecksumMismatch and the next call starts
// scanning one byte past the rejected sync byte.  The same goes for a
// candidate cut short by the end of the input when there is another 0xd3
// byte in what was read.
func (s *RTCMScanner) Next() ([]byte, error) {

	// Phase 1: eat bytes until we see the start of message frame byte.
	if err := s.eatUntil([]byte{rtcm3.StartOfMessageFrame}); err != nil {
		return nil, err
	}

	// Phase 2: read the length.
	frame, err := s.read([]byte{rtcm3.StartOfMessageFrame}, rtcm3.LeaderLengthBytes-1)
	if err != nil {
		return nil, err
	}

	// Phase 3: read the message and the CRC.
	messageLength := rtcm3.MessageLength(frame)
	frame, err = s.read(frame, messageLength+integrity.CRC24QLengthBytes)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, s.truncated("RTCM", []byte{rtcm3.StartOfMessageFrame}, frame)
		}
		return nil, err
	}

	// Phase 4: check it.
	if !integrity.VerifyCRC24Q(frame) {
		return nil, s.reject("RTCM", frame)
	}

	return s.accept(frame)
}
