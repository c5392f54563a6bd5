package bitcursor

// Buffer accumulates a bit string.  Bits are appended at the end and
// discarded from the front.  The zero value is an empty buffer ready to
// use.
type Buffer struct {
	data   []byte
	length uint
}

// NewBuffer creates a Buffer holding the first length bits of data.
func NewBuffer(data []byte, length uint) *Buffer {
	var b Buffer
	b.AppendBits(data, length)
	return &b
}

// Len returns the number of bits in the buffer.
func (b *Buffer) Len() uint {
	return b.length
}

// AppendBits appends the first n bits of data.  If data is shorter than
// that, all of it is appended.
func (b *Buffer) AppendBits(data []byte, n uint) {
	if n > uint(len(data))*8 {
		n = uint(len(data)) * 8
	}
	b.appendFrom(data, 0, n)
}

// AppendBytes appends all of data.
func (b *Buffer) AppendBytes(data []byte) {
	if b.length%8 == 0 {
		// Byte aligned, so just copy.
		b.data = append(b.data[:b.length/8], data...)
		b.length += uint(len(data)) * 8
		return
	}
	b.appendFrom(data, 0, uint(len(data))*8)
}

// AppendUnsigned appends the bottom n bits of v, most significant first.
func (b *Buffer) AppendUnsigned(v uint64, n uint) {
	for i := n; i > 0; i-- {
		if b.length%8 == 0 {
			b.data = append(b.data[:b.length/8], 0)
		}
		if (v>>(i-1))&1 == 1 {
			b.data[b.length/8] |= 0x80 >> (b.length % 8)
		}
		b.length++
	}
}

// AppendSigned appends v as an n-bit two's complement value.
func (b *Buffer) AppendSigned(v int64, n uint) {
	b.AppendUnsigned(uint64(v), n)
}

// AppendBool appends a one-bit flag.
func (b *Buffer) AppendBool(flag bool) {
	if flag {
		b.AppendUnsigned(1, 1)
	} else {
		b.AppendUnsigned(0, 1)
	}
}

// AppendRange appends n bits of src starting at bit pos.  It stops at the
// end of src.
func (b *Buffer) AppendRange(src []byte, pos, n uint) {
	total := uint(len(src)) * 8
	if pos >= total {
		return
	}
	if pos+n > total {
		n = total - pos
	}
	b.appendFrom(src, pos, n)
}

// appendFrom appends n bits of src starting at bit pos.
func (b *Buffer) appendFrom(src []byte, pos, n uint) {
	for i := pos; i < pos+n; i++ {
		if b.length%8 == 0 {
			b.data = append(b.data[:b.length/8], 0)
		}
		if (src[i/8]>>(7-i%8))&1 == 1 {
			b.data[b.length/8] |= 0x80 >> (b.length % 8)
		}
		b.length++
	}
}

// Discard removes the first n bits.
func (b *Buffer) Discard(n uint) {
	if n >= b.length {
		b.Reset()
		return
	}

	if n%8 == 0 {
		rest := make([]byte, len(b.data)-int(n/8))
		copy(rest, b.data[n/8:])
		b.data = rest
		b.length -= n
		return
	}

	var rest Buffer
	rest.appendFrom(b.data, n, b.length-n)
	*b = rest
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.data = nil
	b.length = 0
}

// AllZero returns true if every bit in the buffer is zero.  An empty buffer
// is all zero.
func (b *Buffer) AllZero() bool {
	for _, v := range b.data {
		if v != 0 {
			return false
		}
	}
	return true
}

// Cursor returns a Cursor over the current contents.  The cursor shares
// storage with the buffer and is invalidated by the next change to it.
func (b *Buffer) Cursor() *Cursor {
	return NewWithLength(b.data, b.length)
}

// Bytes returns a copy of the first n bits, zero padded to a byte boundary.
func (b *Buffer) Bytes(n uint) []byte {
	if n > b.length {
		n = b.length
	}
	result := make([]byte, (n+7)/8)
	copy(result, b.data)
	if n%8 != 0 {
		// Clear the bits beyond the end.
		result[len(result)-1] &= byte(0xff << (8 - n%8))
	}
	return result
}
