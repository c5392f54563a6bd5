// The integrity package provides the two check values used by the
// transports that carry CSSR data.
//
// CRC24Q is the 24-bit cyclic redundancy check that ends every RTCM3
// message frame.  It's computed over the leader (the 0xd3 byte and the
// two length bytes) and the embedded message and is sent most significant
// byte first.
//
// Checksum8 is the 8-bit Fletcher-style checksum (two running sums, each
// truncated to a byte) that ends a u-blox UBX frame.  It has nothing to do
// with CRC24Q and the two must not be mixed up.
package integrity

import (
	"github.com/goblimey/go-crc24q/crc24q"
)

// CRC24QLengthBytes is the length of an RTCM3 CRC.
const CRC24QLengthBytes = 3

// Checksum8LengthBytes is the length of a UBX checksum.
const Checksum8LengthBytes = 2

// CRC24Q returns the 24-bit CRC of data.
func CRC24Q(data []byte) uint32 {
	return crc24q.Hash(data)
}

// ComputeCRC24Q returns the CRC of data as the three bytes that are
// appended to a message frame.
func ComputeCRC24Q(data []byte) [CRC24QLengthBytes]byte {
	crc := crc24q.Hash(data)
	return [CRC24QLengthBytes]byte{
		crc24q.HiByte(crc), crc24q.MiByte(crc), crc24q.LoByte(crc),
	}
}

// AppendCRC24Q returns data with its CRC appended.
func AppendCRC24Q(data []byte) []byte {
	crc := ComputeCRC24Q(data)
	return append(data, crc[:]...)
}

// VerifyCRC24Q checks a frame whose last three bytes are the CRC of the
// rest of it.
func VerifyCRC24Q(frame []byte) bool {
	if len(frame) < CRC24QLengthBytes {
		return false
	}
	body := frame[:len(frame)-CRC24QLengthBytes]
	want := ComputeCRC24Q(body)
	got := frame[len(frame)-CRC24QLengthBytes:]
	return got[0] == want[0] && got[1] == want[1] && got[2] == want[2]
}

// Checksum8 returns the two checksum bytes of a UBX frame computed over
// data, which should run from the message class to the end of the payload.
func Checksum8(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// VerifyChecksum8 checks data against the two checksum bytes that follow
// it on the wire.
func VerifyChecksum8(data []byte, ckA, ckB byte) bool {
	a, b := Checksum8(data)
	return a == ckA && b == ckB
}
