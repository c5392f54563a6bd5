// The bitcursor package reads and accumulates bit strings.  CSSR messages
// are not byte aligned: a message can start anywhere within a byte and the
// fields are packed most significant bit first with no padding between
// them.  A Cursor reads fields from a fixed bit string.  A Buffer collects
// bit strings of arbitrary length (for example the 1695-bit data parts of a
// QZS L6 frame) and hands out Cursors over what it has collected so far.
//
//	cursor := bitcursor.New(data)
//	messageNumber, err := cursor.ReadUnsigned(12)
//	if errors.Is(err, bitcursor.ErrInsufficientData) {
//		// wait for more data and try again from the same position.
//	}
//
// A read that runs off the end of the data never panics and never moves
// the position, so the caller can go back, get more data and try again.
package bitcursor

import (
	"errors"
	"fmt"
)

// MaxFieldWidth is the widest field that can be read in one call.
const MaxFieldWidth = 64

// ErrInsufficientData is returned when a read asks for more bits than
// remain.
var ErrInsufficientData = errors.New("insufficient data")

// Cursor reads fields from a bit string, most significant bit first.
type Cursor struct {
	// data contains the bits.  Only the first length bits are valid.
	data []byte
	// length is the number of valid bits in data.
	length uint
	// pos is the position of the next bit to read.
	pos uint
}

// New creates a Cursor over all the bits in data.
func New(data []byte) *Cursor {
	return NewWithLength(data, uint(len(data))*8)
}

// NewWithLength creates a Cursor over the first length bits of data.  If
// data is shorter than that, the length is trimmed to fit.
func NewWithLength(data []byte, length uint) *Cursor {
	if length > uint(len(data))*8 {
		length = uint(len(data)) * 8
	}
	return &Cursor{data: data, length: length}
}

// Position returns the number of bits read so far.
func (c *Cursor) Position() uint {
	return c.pos
}

// Length returns the total number of bits in the string.
func (c *Cursor) Length() uint {
	return c.length
}

// RemainingBits returns the number of bits not yet read.
func (c *Cursor) RemainingBits() uint {
	return c.length - c.pos
}

// Clone returns an independent copy of the cursor.  Reads from the copy
// don't move the original, so a decoder can work on a copy and only
// commit the new position when a whole message has been read.
func (c *Cursor) Clone() *Cursor {
	clone := *c
	return &clone
}

// PeekBits returns the next n bits as an unsigned value without moving the
// position.  The second result is false if there are not enough bits.
func (c *Cursor) PeekBits(n uint) (uint64, bool) {
	if n > MaxFieldWidth || n > c.RemainingBits() {
		return 0, false
	}
	return GetBitsAsUint64(c.data, c.pos, n), true
}

// ReadUnsigned reads the next n bits as an unsigned value.
func (c *Cursor) ReadUnsigned(n uint) (uint64, error) {
	if n > MaxFieldWidth {
		return 0, fmt.Errorf("field width %d exceeds %d bits", n, MaxFieldWidth)
	}
	if n > c.RemainingBits() {
		return 0, ErrInsufficientData
	}
	result := GetBitsAsUint64(c.data, c.pos, n)
	c.pos += n
	return result, nil
}

// ReadSigned reads the next n bits as a two's complement signed value.
func (c *Cursor) ReadSigned(n uint) (int64, error) {
	if n > MaxFieldWidth {
		return 0, fmt.Errorf("field width %d exceeds %d bits", n, MaxFieldWidth)
	}
	if n > c.RemainingBits() {
		return 0, ErrInsufficientData
	}
	result := GetBitsAsInt64(c.data, c.pos, n)
	c.pos += n
	return result, nil
}

// ReadBool reads a one-bit flag.
func (c *Cursor) ReadBool() (bool, error) {
	v, err := c.ReadUnsigned(1)
	return v == 1, err
}

// ReadBits reads the next n bits into a new Cursor of their own, for
// example a satellite mask that's scanned later.
func (c *Cursor) ReadBits(n uint) (*Cursor, error) {
	if n > c.RemainingBits() {
		return nil, ErrInsufficientData
	}
	var b Buffer
	b.appendFrom(c.data, c.pos, n)
	c.pos += n
	return b.Cursor(), nil
}

// Skip moves the position forward n bits.
func (c *Cursor) Skip(n uint) error {
	if n > c.RemainingBits() {
		return ErrInsufficientData
	}
	c.pos += n
	return nil
}

// Bit returns the value of bit i, counting from the start of the string,
// not from the current position.  Bits beyond the end read as false.
func (c *Cursor) Bit(i uint) bool {
	if i >= c.length {
		return false
	}
	return GetBitsAsUint64(c.data, i, 1) == 1
}

// GetBitsAsUint64 extracts len bits from buff starting at bit pos, most
// significant bit first, and returns them as an unsigned value.  It
// doesn't check the bounds - the caller must.
func GetBitsAsUint64(buff []byte, pos uint, len uint) uint64 {
	var result uint64
	for i := pos; i < pos+len; i++ {
		b := uint64(buff[i/8]) >> (7 - i%8)
		result = (result << 1) | (b & 1)
	}
	return result
}

// GetBitsAsInt64 extracts len bits as GetBitsAsUint64 does and interprets
// them as a two's complement signed value.
func GetBitsAsInt64(buff []byte, pos uint, len uint) int64 {
	if len == 0 {
		return 0
	}
	uval := GetBitsAsUint64(buff, pos, len)
	if len == 64 {
		return int64(uval)
	}

	// If the top bit is set the value is negative.  Take away the weight
	// of the full range to get it.
	if uval&(uint64(1)<<(len-1)) != 0 {
		return int64(uval) - int64(uint64(1)<<len)
	}
	return int64(uval)
}
