// The rtcm3 package builds and takes apart RTCM version 3 message frames.
//
// A frame is a 3-byte leader, the embedded message and a 3-byte CRC.  The
// leader is the start of message byte 0xd3 and two bytes containing six
// reserved bits (zero) and a 10-bit message length.  The message starts
// with a 12-bit message number.  CSSR corrections travel in message 4073.
//
//	frame, err := rtcm3.Encode(payload)
//
// wraps a byte-aligned payload in a frame, and
//
//	message, err := rtcm3.DecodeHead(frame)
//
// checks a frame and returns the payload and message number.
package rtcm3

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goblimey/go-cssr/integrity"
)

// StartOfMessageFrame is the value of the byte that starts an RTCM3 message frame.
const StartOfMessageFrame byte = 0xd3

// LeaderLengthBytes is the length of the leader.
const LeaderLengthBytes = 3

// LeaderLengthBits is the length of the leader in bits.
const LeaderLengthBits = LeaderLengthBytes * 8

// MaxMessageLength is the longest message that fits in the 10-bit length.
const MaxMessageLength = 1023

// LenMessageType is the length of the message number in bits.
const LenMessageType = 12

var (
	// ErrMessageTooLong is returned by Encode for a payload longer than
	// MaxMessageLength.
	ErrMessageTooLong = errors.New("message too long")

	// ErrNotRTCM is returned by DecodeHead for data that is not an RTCM3 frame.
	ErrNotRTCM = errors.New("not an RTCM3 frame")

	// ErrIncomplete is returned by DecodeHead when the frame is shorter than
	// its length field says.
	ErrIncomplete = errors.New("incomplete message frame")

	// ErrCRC is returned by DecodeHead when the CRC check fails.
	ErrCRC = errors.New("CRC check failed")
)

// Message is a checked RTCM3 message frame.
type Message struct {
	// MessageType is the message number from the first 12 bits of the payload.
	// It's zero if the payload is too short to hold one.
	MessageType int

	// Payload is the embedded message without the leader and the CRC.
	Payload []byte

	// RawData is the whole frame including the leader and the CRC.
	RawData []byte
}

// Encode wraps payload in an RTCM3 frame.  The payload must already be
// padded to a byte boundary.
func Encode(payload []byte) ([]byte, error) {
	if len(payload) > MaxMessageLength {
		return nil, fmt.Errorf("%w: %d bytes, maximum %d",
			ErrMessageTooLong, len(payload), MaxMessageLength)
	}

	frame := make([]byte, 0, LeaderLengthBytes+len(payload)+integrity.CRC24QLengthBytes)
	frame = append(frame, StartOfMessageFrame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	return integrity.AppendCRC24Q(frame), nil
}

// MessageLength returns the message length from the leader of a frame.  The
// reserved bits are ignored.  The frame must be at least LeaderLengthBytes long.
func MessageLength(frame []byte) int {
	return (int(frame[1])<<8 | int(frame[2])) & 0x3ff
}

// DecodeHead checks a frame and returns it as a Message.  Anything after
// the CRC is ignored.
func DecodeHead(frame []byte) (*Message, error) {
	if len(frame) < LeaderLengthBytes || frame[0] != StartOfMessageFrame {
		return nil, ErrNotRTCM
	}

	messageLength := MessageLength(frame)
	frameLength := LeaderLengthBytes + messageLength + integrity.CRC24QLengthBytes
	if len(frame) < frameLength {
		return nil, fmt.Errorf("%w: want %d bytes, got %d",
			ErrIncomplete, frameLength, len(frame))
	}

	frame = frame[:frameLength]
	if !integrity.VerifyCRC24Q(frame) {
		return nil, ErrCRC
	}

	payload := frame[LeaderLengthBytes : LeaderLengthBytes+messageLength]

	message := Message{
		Payload: payload,
		RawData: frame,
	}

	if messageLength >= 2 {
		message.MessageType = int(payload[0])<<4 | int(payload[1])>>4
	}

	return &message, nil
}

// String returns the message as a readable string.
func (message *Message) String() string {
	display := fmt.Sprintf("message type %d, frame length %d\n",
		message.MessageType, len(message.RawData))
	display += hex.Dump(message.RawData)
	return display
}
