package cssr

import (
	"io"
	"log/slog"

	"github.com/goblimey/go-cssr/bitcursor"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testIOD = 7

// bitWriter builds test messages.
type bitWriter struct {
	buf bitcursor.Buffer
}

func (w *bitWriter) u(v uint64, n uint) *bitWriter {
	w.buf.AppendUnsigned(v, n)
	return w
}

func (w *bitWriter) s(v int64, n uint) *bitWriter {
	w.buf.AppendSigned(v, n)
	return w
}

func (w *bitWriter) bytes() []byte {
	return w.buf.Bytes(w.buf.Len())
}

func (w *bitWriter) len() uint {
	return w.buf.Len()
}

// header writes a message header.
func (w *bitWriter) header(subtype int, iod uint64) *bitWriter {
	w.u(MessageNumber, 12).u(uint64(subtype), 4)
	switch subtype {
	case 1:
		w.u(123456, 20)
	case 10:
		return w
	default:
		w.u(1800, 12)
	}
	return w.u(3, 4).u(0, 1).u(iod, 4)
}

// writeTestMask writes an ST1 message:
//
//	GPS satellites 1 and 3, signals L1 C/A and L5 I, cell mask 11 10
//	Galileo satellite 2, signal E1 C, no cell mask
//
// That's three satellites and four active cells: G01 L1 C/A, G01 L5 I,
// G03 L1 C/A and E02 E1 C.
func writeTestMask(w *bitWriter, iod uint64) *bitWriter {
	w.header(1, iod).u(2, 4)
	w.u(0, 4).u(1<<39|1<<37, 40).u(1<<15|1<<4, 16).u(1, 1)
	w.u(1, 1).u(1, 1).u(1, 1).u(0, 1)
	w.u(2, 4).u(1<<38, 40).u(1<<14, 16).u(0, 1)
	return w
}

// testMaskBits is the length of the message written by writeTestMask.
const testMaskBits = 45 + 4 + 61 + 4 + 61

// newTestDecoder returns a decoder that has already seen the test mask.
func newTestDecoder(options Options) *Decoder {
	d := New(options, quietLogger)
	var w bitWriter
	writeTestMask(&w, testIOD)
	if _, err := d.DecodeMessage(w.bytes()); err != nil {
		panic(err)
	}
	return d
}

func writeOrbitMessage(w *bitWriter) {
	w.header(2, testIOD)
	// G01, G03, E02.
	w.u(45, 8).s(100, 15).s(-4096, 13).s(10, 13)
	w.u(46, 8).s(-16384, 15).s(0, 13).s(-1, 13)
	w.u(1000, 10).s(1, 15).s(2, 13).s(3, 13)
}

func writeClockMessage(w *bitWriter) {
	w.header(3, testIOD)
	w.s(-100, 15).s(-16384, 15).s(16383, 15)
}

func writeCodeBiasMessage(w *bitWriter) {
	w.header(4, testIOD)
	w.s(50, 11).s(-1024, 11).s(-50, 11).s(1023, 11)
}

func writePhaseBiasMessage(w *bitWriter) {
	w.header(5, testIOD)
	w.s(500, 15).u(1, 2)
	w.s(-16384, 15).u(2, 2)
	w.s(-500, 15).u(3, 2)
	w.s(0, 15).u(0, 2)
}

func writeNetworkBiasMessage(w *bitWriter) {
	w.header(6, testIOD)
	w.u(1, 1).u(1, 1).u(1, 1)
	w.u(5, 5)
	// G01 and E02.
	w.u(1, 1).u(0, 1).u(1, 1)
	// G01 L1 C/A, G01 L5 I, E02 E1 C.
	w.s(10, 11).s(100, 15).u(0, 2)
	w.s(20, 11).s(200, 15).u(1, 2)
	w.s(30, 11).s(300, 15).u(2, 2)
}

func writeURAMessage(w *bitWriter) {
	w.header(7, testIOD)
	w.u(19, 6).u(0, 6).u(63, 6)
}

func writeSTECMessage(w *bitWriter) {
	w.header(8, testIOD)
	w.u(3, 2).u(9, 5)
	w.u(1, 1).u(1, 1).u(0, 1)
	for i := 0; i < 2; i++ {
		w.u(33, 6).s(20, 14).s(-2048, 12).s(50, 12).s(-5, 10).s(4, 8).s(-128, 8)
	}
}

func writeGriddedMessage(w *bitWriter) {
	w.header(9, testIOD)
	w.u(1, 2).u(0, 1).u(3, 5)
	w.u(1, 1).u(0, 1).u(1, 1) // G01 and E02
	w.u(10, 6).u(2, 6)
	// Grid point 1.
	w.s(250, 9).s(-128, 8).s(-64, 7).s(10, 7)
	// Grid point 2.
	w.s(-256, 9).s(25, 8).s(63, 7).s(-63, 7)
}

func writeServiceInfoMessage(w *bitWriter) {
	w.header(10, testIOD)
	w.u(2, 3).u(0, 2)
	w.u(0x0102030405, 40)
}

func writeNetworkCorrectionMessage(w *bitWriter) {
	w.header(11, testIOD)
	w.u(1, 1).u(1, 1).u(1, 1)
	w.u(7, 5)
	// G03 and E02.
	w.u(0, 1).u(1, 1).u(1, 1)
	w.u(12, 8).s(-16384, 15).s(-4096, 13).s(4095, 13).s(77, 15)
	w.u(513, 10).s(5, 15).s(6, 13).s(7, 13).s(-16384, 15)
}

func writeCombinedMessage(w *bitWriter) {
	w.header(12, testIOD)
	w.u(3, 2).u(2, 2).u(4, 5).u(2, 6)
	// Troposphere polynomial, type 2.
	w.u(5, 6).u(2, 2).s(100, 9).s(-64, 7).s(10, 7).s(-3, 7)
	// Troposphere residuals, 6 bits.
	w.u(0, 1).u(3, 4).s(-32, 6).s(-31, 6)
	// Slant TEC for G01 only.
	w.u(1, 1).u(0, 1).u(0, 1)
	w.u(17, 6).u(0, 2).s(-8192, 14)
	w.u(2, 2).s(-16, 5).s(15, 5)
}

// messageWriter writes a test message of the given subtype.
type messageWriter struct {
	Subtype int
	Write   func(w *bitWriter)
}

// messageWriters writes one message of each subtype after ST1.
var messageWriters = []messageWriter{
	{2, writeOrbitMessage},
	{3, writeClockMessage},
	{4, writeCodeBiasMessage},
	{5, writePhaseBiasMessage},
	{6, writeNetworkBiasMessage},
	{7, writeURAMessage},
	{8, writeSTECMessage},
	{9, writeGriddedMessage},
	{10, writeServiceInfoMessage},
	{11, writeNetworkCorrectionMessage},
	{12, writeCombinedMessage},
}
