package framesync

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"

	"github.com/goblimey/go-cssr/integrity"
)

// UBXSync is the synchronisation pattern at the start of a u-blox UBX frame.
var UBXSync = []byte{0xb5, 0x62}

// ubxHeaderLength covers the sync bytes, class, ID and 2-byte length.
const ubxHeaderLength = 6

// MaxUBXFrameLength is the length of the longest legal UBX frame.
const MaxUBXFrameLength = ubxHeaderLength + 0xffff + integrity.Checksum8LengthBytes

// UBXScanner finds u-blox UBX frames.  A UBX frame is the two sync bytes,
// a class, an ID, a little-endian 16-bit payload length, the payload and
// a 2-byte Checksum8 computed from the class to the end of the payload.
type UBXScanner struct {
	scanner
}

// NewUBXScanner creates a scanner that reads UBX frames from source.
// limit is the buffer limit in bytes (zero for the default).
func NewUBXScanner(source io.Reader, limit int, logger *slog.Logger) *UBXScanner {
	return &UBXScanner{scanner: newScanner(source, limit, MaxUBXFrameLength, logger)}
}

// Next returns the next UBX frame, sync bytes and checksum included.
func (s *UBXScanner) Next() ([]byte, error) {
	if err := s.eatUntil(UBXSync); err != nil {
		return nil, err
	}

	frame := append([]byte{}, UBXSync...)
	frame, err := s.read(frame, ubxHeaderLength-len(UBXSync))
	if err != nil {
		return nil, err
	}

	payloadLength := int(binary.LittleEndian.Uint16(frame[4:6]))
	frame, err = s.read(frame, payloadLength+integrity.Checksum8LengthBytes)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, s.truncated("UBX", UBXSync, frame)
		}
		return nil, err
	}

	body := frame[len(UBXSync) : len(frame)-integrity.Checksum8LengthBytes]
	if !integrity.VerifyChecksum8(body, frame[len(frame)-2], frame[len(frame)-1]) {
		return nil, s.reject("UBX", frame)
	}

	return s.accept(frame)
}

// UBXClassAndID returns the message class and ID of a UBX frame returned
// by Next.
func UBXClassAndID(frame []byte) (class, id byte) {
	return frame[2], frame[3]
}

// UBXPayload returns the payload of a UBX frame returned by Next.
func UBXPayload(frame []byte) []byte {
	return frame[ubxHeaderLength : len(frame)-integrity.Checksum8LengthBytes]
}
