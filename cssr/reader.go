package cssr

import (
	"github.com/goblimey/go-cssr/bitcursor"
)

// reader wraps a Cursor for the subtype decoders.  Each decoder checks with
// need that a group of fields is all there before reading any of them, so
// the reads themselves can't fail.  If one does anyway the failure is
// remembered and the decode is abandoned.
type reader struct {
	c   *bitcursor.Cursor
	err error
	// other counts bits of the body that are not per-satellite or
	// per-signal data, for the statistics.
	other uint
}

// need returns ErrNeedMoreData if fewer than n bits remain.
func (r *reader) need(n uint) error {
	if r.err != nil {
		return r.err
	}
	if r.c.RemainingBits() < n {
		r.err = ErrNeedMoreData
	}
	return r.err
}

func (r *reader) u(n uint) uint64 {
	v, err := r.c.ReadUnsigned(n)
	if err != nil && r.err == nil {
		r.err = ErrNeedMoreData
	}
	return v
}

func (r *reader) s(n uint) int64 {
	v, err := r.c.ReadSigned(n)
	if err != nil && r.err == nil {
		r.err = ErrNeedMoreData
	}
	return v
}

func (r *reader) flag() bool {
	return r.u(1) == 1
}

func (r *reader) pos() uint {
	return r.c.Position()
}
