// The l6 package handles the QZS L6 broadcast: the 250-byte frames sent by
// the QZSS satellites and the reassembly of the CSSR bit stream that they
// carry.
//
// An L6 frame is
//
//	preamble        4 bytes  0x1acffc1d
//	PRN             1 byte
//	message type ID 1 byte   vendor, facility, service, extension, subframe indicator
//	data part       212 bytes  alert flag (1 bit) + 1695 bits of payload
//	Reed-Solomon    32 bytes
//
// The payload of consecutive data parts is one continuous bit stream.  For
// CLAS and MADOCA-PPP it's a stream of CSSR messages, and the subframe
// indicator marks the data part that starts a new subframe.
package l6

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goblimey/go-cssr/bitcursor"
	"github.com/goblimey/go-cssr/framesync"
)

const (
	// DataBytes is the length of the data part of a frame.
	DataBytes = 212

	// ParityBytes is the length of the Reed-Solomon parity.
	ParityBytes = 32

	// DataPartBits is the length of the payload of one data part: the data
	// part less the alert flag.
	DataPartBits = DataBytes*8 - 1

	// headerBytes is the length of the preamble, the PRN and the MTID.
	headerBytes = 6
)

// ErrBadFrame means ParseFrame was given something that is not an L6 frame.
var ErrBadFrame = errors.New("not an L6 frame")

// Vendor is the 3-bit vendor ID from the message type ID.
type Vendor uint8

const (
	MADOCA    Vendor = 1
	MADOCAPPP Vendor = 2
	QZNMA     Vendor = 3
	CLAS      Vendor = 5
)

// String returns the vendor name.
func (v Vendor) String() string {
	switch v {
	case MADOCA:
		return "MADOCA"
	case MADOCAPPP:
		return "MADOCA-PPP"
	case QZNMA:
		return "QZNMA"
	case CLAS:
		return "CLAS"
	default:
		return fmt.Sprintf("unknown (vendor ID 0b%03b)", uint8(v))
	}
}

// CarriesCSSR returns true if the vendor's data parts carry CSSR messages.
func (v Vendor) CarriesCSSR() bool {
	return v == CLAS || v == MADOCAPPP
}

// Frame is one L6 frame.
type Frame struct {
	PRN    uint8
	MTID   uint8
	Data   [DataBytes]byte
	Parity [ParityBytes]byte
}

// ParseFrame splits a 250-byte L6 frame, preamble included, as returned by
// framesync.L6Scanner.
func ParseFrame(frame []byte) (*Frame, error) {
	if len(frame) != framesync.L6FrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(frame))
	}
	if !bytes.Equal(frame[:len(framesync.L6Preamble)], framesync.L6Preamble) {
		return nil, fmt.Errorf("%w: preamble %x", ErrBadFrame, frame[:4])
	}

	var f Frame
	f.PRN = frame[4]
	f.MTID = frame[5]
	copy(f.Data[:], frame[headerBytes:headerBytes+DataBytes])
	copy(f.Parity[:], frame[headerBytes+DataBytes:])
	return &f, nil
}

// Vendor returns the vendor ID, the top 3 bits of the MTID.
func (f *Frame) Vendor() Vendor {
	return Vendor(f.MTID >> 5)
}

// Facility returns the name of the uplink station and the facility index,
// for example "Kobe:1".
func (f *Frame) Facility() string {
	name := "Hitachi-Ota"
	if f.MTID&0x10 != 0 {
		name = "Kobe"
	}
	return fmt.Sprintf("%s:%d", name, (f.MTID>>3)&1)
}

// Service returns the service ID, "Ionosph" or "Clk/Eph".
func (f *Frame) Service() string {
	if f.MTID&0x04 != 0 {
		return "Ionosph"
	}
	return "Clk/Eph"
}

// Extension returns the message extension, "CNAV" or "LNAV".
func (f *Frame) Extension() string {
	if f.MTID&0x02 != 0 {
		return "CNAV"
	}
	return "LNAV"
}

// SubframeIndicator returns true if this data part starts a subframe.
func (f *Frame) SubframeIndicator() bool {
	return f.MTID&0x01 != 0
}

// Alert returns the alert flag, the first bit of the data part.
func (f *Frame) Alert() bool {
	return f.Data[0]&0x80 != 0
}

// DataPart returns the payload of the data part as a left aligned bit
// string of DataPartBits bits.
func (f *Frame) DataPart() ([]byte, uint) {
	var b bitcursor.Buffer
	b.AppendRange(f.Data[:], 1, DataPartBits)
	return b.Bytes(b.Len()), b.Len()
}

// String returns the PRN, facility, alert flag and vendor, the way they
// start each line of the frame log.
func (f *Frame) String() string {
	alert := " "
	if f.Alert() {
		alert = "*"
	}
	return fmt.Sprintf("%d %-13s%s %s", f.PRN, f.Facility(), alert, f.Vendor())
}
