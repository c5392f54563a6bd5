package cssr

import (
	"fmt"
)

// MessageNumber is the RTCM message number used by CSSR.
const MessageNumber = 4073

// Header is the common header of a CSSR message.
type Header struct {
	MessageNumber int
	Subtype       int
	// Epoch is the GPS epoch time in seconds (ST1 only).
	Epoch uint32
	// HourlyEpoch is the time within the hour in seconds (not ST1 or ST10).
	HourlyEpoch uint16
	// UpdateInterval is the 4-bit update interval code.
	UpdateInterval uint8
	// MultipleMessage is set when more messages of the same subtype follow
	// for the same epoch.
	MultipleMessage bool
	IODSSR          uint8
}

// UpdateIntervalSeconds returns the update interval in seconds.
func (h *Header) UpdateIntervalSeconds() int {
	return UpdateIntervalSeconds(h.UpdateInterval)
}

// String returns a short description of the header.
func (h *Header) String() string {
	switch h.Subtype {
	case 1:
		return fmt.Sprintf("ST1 epoch=%d iod=%d", h.Epoch, h.IODSSR)
	case 10:
		return "ST10"
	default:
		return fmt.Sprintf("ST%d hepoch=%d iod=%d", h.Subtype, h.HourlyEpoch, h.IODSSR)
	}
}

// decodeHeader reads the header.  ST10 messages stop after the subtype.
// The message number is checked as soon as it's read so a stream that is
// out of step is spotted with as few bits as possible.
func decodeHeader(r *reader) (*Header, error) {
	if err := r.need(12); err != nil {
		return nil, err
	}
	var h Header
	h.MessageNumber = int(r.u(12))
	if h.MessageNumber != MessageNumber {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageNumber, h.MessageNumber)
	}

	if err := r.need(4); err != nil {
		return nil, err
	}
	h.Subtype = int(r.u(4))

	switch h.Subtype {
	case 10:
		return &h, nil
	case 1:
		if err := r.need(20); err != nil {
			return nil, err
		}
		h.Epoch = uint32(r.u(20))
	default:
		if err := r.need(12); err != nil {
			return nil, err
		}
		h.HourlyEpoch = uint16(r.u(12))
	}

	if err := r.need(4 + 1 + 4); err != nil {
		return nil, err
	}
	h.UpdateInterval = uint8(r.u(4))
	h.MultipleMessage = r.flag()
	h.IODSSR = uint8(r.u(4))

	return &h, r.err
}
