// The cssr package decodes Compact SSR (CSSR) correction messages.
//
// A CSSR message is RTCM message number 4073 followed by a subtype.
// Subtype 1 (ST1) is the mask message.  It says which satellites and
// signals are active and every other subtype is laid out according to the
// last mask received, so nothing but ST1 can be decoded until a mask has
// been seen.
//
// CSSR messages are not byte aligned.  When they arrive over the QZS L6
// broadcast they run on from one message to the next and across the data
// parts of the broadcast, so the Decoder accumulates bits in a buffer and
// DecodeNext takes whole messages from the front of it.  When they arrive
// in RTCM3 frames, each frame holds one message and DecodeMessage decodes
// it directly.
//
//	decoder := cssr.New(cssr.Options{}, logger)
//	decoder.Append(dataPart, 1695)
//	for {
//		message, err := decoder.DecodeNext()
//		if errors.Is(err, cssr.ErrNeedMoreData) {
//			break
//		}
//		...
//	}
package cssr

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goblimey/go-cssr/bitcursor"
)

var (
	// ErrNeedMoreData means that the buffer ends part way through a
	// message.  Nothing has been consumed.  Add more data and try again.
	ErrNeedMoreData = errors.New("need more data")

	// ErrNullData means that the buffer held nothing but zero padding.
	// The buffer has been emptied.
	ErrNullData = errors.New("null data")

	// ErrUnknownMessageNumber means the data didn't start with message
	// number 4073.  The buffer has been emptied.
	ErrUnknownMessageNumber = errors.New("unknown message number")

	// ErrUnknownSubtype means the subtype is not one that is defined.
	// The buffer has been emptied.
	ErrUnknownSubtype = errors.New("unknown subtype")

	// ErrUnknownSystem means a mask message contained an unknown GNSS ID.
	// The buffer has been emptied.
	ErrUnknownSystem = errors.New("unknown satellite system")

	// ErrMaskNotEstablished means that a message arrived before any mask
	// message.  The buffer has been emptied.
	ErrMaskNotEstablished = errors.New("mask not established")

	// ErrIODMismatch means that the message's IODSSR doesn't match the
	// mask.  The message is returned with its Stale flag set.
	ErrIODMismatch = errors.New("IODSSR mismatch")

	// ErrGridCountMismatch means that the number of grid points in an ST9
	// or ST12 message disagrees with the grid table.  The message has been
	// consumed but no record is returned.
	ErrGridCountMismatch = errors.New("grid count mismatch")
)

// Options controls a Decoder.
type Options struct {
	// BeiDou3Signals selects the BDS-3 signal names for BeiDou.
	BeiDou3Signals bool
	// Grids is the grid network table used to check ST9 and ST12 grid
	// counts.  If it's nil the counts are not checked.
	Grids GridChecker
}

// Message is a decoded CSSR message.
type Message struct {
	Header *Header
	Record Record
	// Bits is the length of the message in bits.
	Bits uint
	// Raw contains the message, zero padded to a byte boundary.  It's
	// ready to be wrapped in an RTCM3 frame.
	Raw []byte
	// Stale is set when the IODSSR doesn't match the current mask.  The
	// corrections must not be applied.
	Stale bool
}

// Statistics counts the satellites and signals in the current mask and the
// bits received since it arrived.
type Statistics struct {
	Satellites    int
	Signals       int
	SatelliteBits uint
	SignalBits    uint
	OtherBits     uint
	NullBits      uint
}

// TotalBits returns the total of the bit counts.
func (s Statistics) TotalBits() uint {
	return s.SatelliteBits + s.SignalBits + s.OtherBits + s.NullBits
}

// String returns the statistics on one line.
func (s Statistics) String() string {
	return fmt.Sprintf("n_sat %d n_sig %d bit_sat %d bit_sig %d bit_other %d bit_null %d bit_total %d",
		s.Satellites, s.Signals, s.SatelliteBits, s.SignalBits,
		s.OtherBits, s.NullBits, s.TotalBits())
}

// Decoder decodes a stream of CSSR messages.  It holds the current mask,
// so each input stream needs its own Decoder.  It's not safe for
// concurrent use.
type Decoder struct {
	options Options
	logger  *slog.Logger
	buffer  bitcursor.Buffer
	mask    *Mask
	stats   Statistics
}

// New creates a Decoder.  If logger is nil the default logger is used.
func New(options Options, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{options: options, logger: logger}
}

// Append adds the first n bits of data to the end of the buffer.
func (d *Decoder) Append(data []byte, n uint) {
	d.buffer.AppendBits(data, n)
}

// Replace empties the buffer and then adds the first n bits of data.
func (d *Decoder) Replace(data []byte, n uint) {
	d.buffer.Reset()
	d.buffer.AppendBits(data, n)
}

// Reset empties the buffer.  The mask is kept.
func (d *Decoder) Reset() {
	d.buffer.Reset()
}

// Buffered returns the number of bits in the buffer.
func (d *Decoder) Buffered() uint {
	return d.buffer.Len()
}

// Mask returns the current mask, nil if no mask message has been decoded.
func (d *Decoder) Mask() *Mask {
	return d.mask
}

// Statistics returns the statistics since the last mask message.
func (d *Decoder) Statistics() Statistics {
	return d.stats
}

// DecodeHead decodes the header of the message at the front of the buffer
// without consuming anything.
func (d *Decoder) DecodeHead() (*Header, error) {
	if d.buffer.Len() > 0 && d.buffer.AllZero() {
		return nil, ErrNullData
	}
	r := reader{c: d.buffer.Cursor()}
	return decodeHeader(&r)
}

// DecodeNext decodes the message at the front of the buffer and removes
// it.
//
// ErrNeedMoreData leaves the buffer alone.  ErrNullData,
// ErrUnknownMessageNumber, ErrUnknownSubtype, ErrUnknownSystem and
// ErrMaskNotEstablished empty it: the length of whatever is there can't be
// known, so there's no way to skip just that message.  ErrGridCountMismatch
// removes the message.  ErrIODMismatch is returned along with the message,
// which is marked Stale.
func (d *Decoder) DecodeNext() (*Message, error) {
	if d.buffer.Len() == 0 {
		return nil, ErrNeedMoreData
	}
	if d.buffer.AllZero() {
		d.logger.Debug("CSSR null data", "bits", d.buffer.Len())
		d.stats.NullBits += d.buffer.Len()
		d.buffer.Reset()
		return nil, ErrNullData
	}

	message, bits, err := d.decode(d.buffer.Cursor())
	switch {
	case errors.Is(err, ErrNeedMoreData):
		return nil, err
	case errors.Is(err, ErrGridCountMismatch):
		d.logger.Warn("CSSR grid mismatch", "error", err)
		d.buffer.Discard(bits)
		return nil, err
	case err != nil && !errors.Is(err, ErrIODMismatch):
		if errors.Is(err, ErrUnknownMessageNumber) {
			d.stats.NullBits += d.buffer.Len()
		}
		d.logger.Warn("CSSR decode failed, buffer discarded",
			"error", err, "bits", d.buffer.Len())
		d.buffer.Reset()
		return nil, err
	}

	message.Raw = d.buffer.Bytes(bits)
	d.buffer.Discard(bits)
	return message, err
}

// DecodeMessage decodes one message from data, for example the payload of
// an RTCM3 frame.  It uses and updates the same mask as DecodeNext but
// doesn't touch the buffer.  If the data is too short the result is
// ErrNeedMoreData.
func (d *Decoder) DecodeMessage(data []byte) (*Message, error) {
	message, bits, err := d.decode(bitcursor.New(data))
	if err != nil && !errors.Is(err, ErrIODMismatch) {
		return nil, err
	}
	message.Raw = append([]byte{}, data[:(bits+7)/8]...)
	return message, err
}

// decode decodes a message from c.  The decoder's state is only changed if
// the message is complete.  The result includes the number of bits the
// message occupies, which is also returned with ErrGridCountMismatch.
func (d *Decoder) decode(c *bitcursor.Cursor) (*Message, uint, error) {
	r := reader{c: c}
	header, err := decodeHeader(&r)
	if err != nil {
		return nil, 0, err
	}
	headerBits := r.pos()

	if header.Subtype != 1 && header.Subtype != 10 && d.mask == nil {
		return nil, 0, fmt.Errorf("%w: ST%d", ErrMaskNotEstablished, header.Subtype)
	}

	var (
		record  Record
		mask    *Mask
		sigBits bool // true if the body counts as signal bits
	)
	switch header.Subtype {
	case 1:
		mask, err = decodeMask(&r, header, d.options.BeiDou3Signals)
		if err == nil {
			record = &MaskRecord{Mask: mask}
		}
	case 2:
		record, err = decodeOrbit(&r, d.mask)
	case 3:
		record, err = decodeClock(&r, d.mask)
	case 4:
		record, err = decodeCodeBias(&r, d.mask)
		sigBits = true
	case 5:
		record, err = decodePhaseBias(&r, d.mask)
		sigBits = true
	case 6:
		record, err = decodeNetworkBias(&r, d.mask)
		sigBits = true
	case 7:
		record, err = decodeURA(&r, d.mask)
	case 8:
		record, err = decodeSTEC(&r, d.mask)
	case 9:
		record, err = decodeGridded(&r, d.mask, d.options.Grids)
	case 10:
		record, err = decodeServiceInfo(&r)
	case 11:
		record, err = decodeNetworkCorrection(&r, d.mask)
	case 12:
		record, err = decodeCombined(&r, d.mask, d.options.Grids)
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownSubtype, header.Subtype)
	}

	bits := r.pos()
	if errors.Is(err, ErrGridCountMismatch) {
		return nil, bits, err
	}
	if err != nil {
		return nil, 0, err
	}

	// The message is complete, so update the state.
	message := Message{Header: header, Record: record, Bits: bits}
	if mask != nil {
		d.setMask(mask, bits)
	} else {
		body := bits - headerBits - r.other
		d.stats.OtherBits += headerBits + r.other
		if sigBits {
			d.stats.SignalBits += body
		} else {
			d.stats.SatelliteBits += body
		}
	}

	d.logger.Debug("CSSR message", "header", header.String(), "bits", bits)

	if header.Subtype != 1 && header.Subtype != 10 && header.IODSSR != d.mask.IODSSR {
		message.Stale = true
		d.logger.Warn("CSSR IODSSR mismatch",
			"subtype", header.Subtype, "iod", header.IODSSR, "mask_iod", d.mask.IODSSR)
		return &message, bits, fmt.Errorf("%w: ST%d iod %d, mask iod %d",
			ErrIODMismatch, header.Subtype, header.IODSSR, d.mask.IODSSR)
	}

	return &message, bits, nil
}

// setMask installs a new mask.  The statistics for the previous mask are
// logged and then started again.
func (d *Decoder) setMask(mask *Mask, bits uint) {
	if d.mask != nil {
		d.logger.Info("CSSR statistics", "stat", d.stats.String())
	}
	d.mask = mask
	d.stats = Statistics{
		Satellites: mask.SatelliteCount(),
		Signals:    mask.ActiveCells(),
		OtherBits:  bits,
	}
	d.logger.Info("CSSR mask", "epoch", mask.Epoch, "iod", mask.IODSSR,
		"satellites", mask.SatelliteCount(), "signals", mask.ActiveCells())
}
