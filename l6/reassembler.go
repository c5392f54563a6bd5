package l6

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-cssr/cssr"
)

// PartLimit is one more than the number of data parts a subframe can have.
const PartLimit = 6

var (
	// ErrTooManyDataParts means that a subframe ran to PartLimit data parts
	// without the messages in it finishing.  The reassembler has been reset
	// and waits for the next ST1.
	ErrTooManyDataParts = errors.New("too many data parts")

	// ErrNotSynchronised means that a subframe started before any mask
	// message had been seen.  The data part has been discarded.
	ErrNotSynchronised = errors.New("waiting for a mask message")

	// ErrUnsupportedVendor means that the frame doesn't carry CSSR.
	ErrUnsupportedVendor = errors.New("vendor does not carry CSSR")
)

// State is the state of a Reassembler.
type State int

const (
	// Idle means the reassembler is waiting for the start of a subframe.
	Idle State = iota
	// Accumulating means a subframe has started and data parts are being
	// added to the decoder's buffer.
	Accumulating
)

func (s State) String() string {
	if s == Accumulating {
		return "accumulating"
	}
	return "idle"
}

// Reassembler joins the data parts of an L6 stream into the bit stream of
// CSSR messages and hands it to a cssr.Decoder.  The messages are taken
// from the decoder as soon as they are complete.  The reassembler goes back
// to Idle when what's left of the subframe is zero padding.
type Reassembler struct {
	decoder *cssr.Decoder
	logger  *slog.Logger

	// running is set by the first ST1 and cleared by a part overflow.
	running  bool
	subframe int
	part     int
}

// NewReassembler creates a Reassembler that feeds decoder.  If logger is
// nil the default logger is used.
func NewReassembler(decoder *cssr.Decoder, logger *slog.Logger) *Reassembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reassembler{decoder: decoder, logger: logger}
}

// State returns Accumulating while a subframe is being put together.
func (r *Reassembler) State() State {
	if r.part > 0 {
		return Accumulating
	}
	return Idle
}

// Subframe returns the subframe number, 1 for the subframe that starts
// with ST1 and counting up from there.  It's 0 before the first ST1.
func (r *Reassembler) Subframe() int {
	return r.subframe
}

// Part returns the number of data parts in the current subframe, 0 when
// Idle.
func (r *Reassembler) Part() int {
	return r.part
}

// Running returns true once an ST1 has started a subframe.
func (r *Reassembler) Running() bool {
	return r.running
}

// Add adds the data part of frame and returns the messages it completes.
func (r *Reassembler) Add(frame *Frame) ([]*cssr.Message, error) {
	if !frame.Vendor().CarriesCSSR() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, frame.Vendor())
	}
	data, n := frame.DataPart()
	return r.AddFragment(frame.SubframeIndicator(), data, n)
}

// AddFragment adds the first n bits of data and returns the messages they
// complete.  start is the subframe indicator.
//
// A stale message is returned along with the others, marked Stale.
// ErrTooManyDataParts and ErrNotSynchronised are warnings: the stream can
// carry on.  Any other error is a decode failure from the cssr package,
// after which the rest of the subframe is ignored.
func (r *Reassembler) AddFragment(start bool, data []byte, n uint) ([]*cssr.Message, error) {
	if start {
		if err := r.startSubframe(data, n); err != nil {
			return nil, err
		}
	} else {
		if r.part == 0 {
			// Nothing to add to.
			return nil, nil
		}
		r.part++
		if r.part == PartLimit {
			r.logger.Warn("too many data parts", "subframe", r.subframe)
			r.running = false
			r.part = 0
			r.subframe = 0
			r.decoder.Reset()
			return nil, ErrTooManyDataParts
		}
		r.decoder.Append(data, n)
	}

	return r.drain()
}

// startSubframe replaces the decoder's buffer with a data part that starts
// a subframe.
func (r *Reassembler) startSubframe(data []byte, n uint) error {
	r.part = 1
	r.decoder.Replace(data, n)
	header, err := r.decoder.DecodeHead()
	if err != nil {
		r.part = 0
		r.decoder.Reset()
		return fmt.Errorf("subframe start: %w", err)
	}

	switch {
	case header.Subtype == 1:
		r.subframe = 1
		r.running = true
	case r.running:
		r.subframe++
	default:
		r.part = 0
		r.decoder.Reset()
		return fmt.Errorf("%w: subframe starts with ST%d", ErrNotSynchronised, header.Subtype)
	}
	return nil
}

// drain takes complete messages from the decoder until it runs out.
func (r *Reassembler) drain() ([]*cssr.Message, error) {
	var messages []*cssr.Message
	for r.part > 0 {
		message, err := r.decoder.DecodeNext()
		switch {
		case err == nil:
			messages = append(messages, message)
		case errors.Is(err, cssr.ErrIODMismatch):
			messages = append(messages, message)
		case errors.Is(err, cssr.ErrGridCountMismatch):
			// The message has been skipped.
		case errors.Is(err, cssr.ErrNeedMoreData):
			return messages, nil
		case errors.Is(err, cssr.ErrNullData):
			// The rest of the subframe is padding.
			r.part = 0
			return messages, nil
		default:
			r.part = 0
			return messages, err
		}
	}
	return messages, nil
}
