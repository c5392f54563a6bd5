package pushback

import (
	"io"
)

// DefaultChunkSize is the number of bytes requested from the source on
// each read.
const DefaultChunkSize = 20

// Reader is a byte source with pushback.  Bytes are fetched from the
// underlying io.Reader a chunk at a time.  A frame scanner that reads a
// candidate frame and then finds that it's not valid can push the bytes
// back and scan them again.
type Reader struct {
	// pending contains bytes that have been fetched or pushed back but not
	// yet consumed.  Pushed back bytes go at the front.
	pending []byte
	// source is the source of the bytes.
	source io.Reader
	// chunk is the read buffer.
	chunk []byte
	// err is the error from the last read of the source.  It's returned
	// once the pending bytes are used up.
	err error
}

// New creates a Reader that fetches chunkSize bytes at a time from
// source.  If chunkSize is zero the default is used.
func New(source io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Reader{source: source, chunk: make([]byte, chunkSize)}
}

// GetNextByte returns the next byte.  Pushed back bytes are returned first,
// in the order they were pushed back.  When the source is exhausted the
// read error (typically io.EOF) is returned.
func (r *Reader) GetNextByte() (byte, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		n, err := r.source.Read(r.chunk)
		r.pending = append(r.pending, r.chunk[:n]...)
		if err != nil {
			r.err = err
		}
		if n == 0 && err == nil {
			// A reader that returns nothing and no error is misbehaving.
			// Treat it as exhausted rather than spin.
			r.err = io.ErrNoProgress
		}
	}

	b := r.pending[0]
	r.pending = r.pending[1:]
	return b, nil
}

// PushBack pushes back the given bytes.  The next calls of GetNextByte
// return them, in order, before anything else.
func (r *Reader) PushBack(b ...byte) {
	if len(b) == 0 {
		return
	}
	buf := make([]byte, 0, len(b)+len(r.pending))
	buf = append(buf, b...)
	r.pending = append(buf, r.pending...)
}

// Buffered returns the number of bytes fetched or pushed back but not yet
// consumed.
func (r *Reader) Buffered() int {
	return len(r.pending)
}
