package session

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goblimey/go-cssr/bitcursor"
	"github.com/goblimey/go-cssr/cssr"
	"github.com/goblimey/go-cssr/framesync"
	"github.com/goblimey/go-cssr/integrity"
	"github.com/goblimey/go-cssr/l6"
	"github.com/goblimey/go-cssr/rtcm3"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func header(b *bitcursor.Buffer, subtype uint64, iod uint64) {
	b.AppendUnsigned(cssr.MessageNumber, 12)
	b.AppendUnsigned(subtype, 4)
	if subtype == 1 {
		b.AppendUnsigned(3600, 20)
	} else {
		b.AppendUnsigned(0, 12)
	}
	b.AppendUnsigned(2, 4)
	b.AppendUnsigned(0, 1)
	b.AppendUnsigned(iod, 4)
}

// mask writes an ST1 message for QZSS satellites 1 and 2, signal L1 C/A.
func mask(b *bitcursor.Buffer) {
	header(b, 1, 4)
	b.AppendUnsigned(1, 4)
	b.AppendUnsigned(4, 4)
	b.AppendUnsigned(3<<38, 40)
	b.AppendUnsigned(1<<15, 16)
	b.AppendUnsigned(0, 1)
}

// clock writes an ST3 message.
func clock(b *bitcursor.Buffer, iod uint64) {
	header(b, 3, iod)
	b.AppendSigned(10, 15)
	b.AppendSigned(-10, 15)
}

// l6Frame builds an L6 frame with the given MTID.  The payload follows the
// alert flag.
func l6Frame(mtid byte, payload *bitcursor.Buffer) []byte {
	var data bitcursor.Buffer
	data.AppendUnsigned(0, 1)
	data.AppendBits(payload.Bytes(payload.Len()), payload.Len())

	frame := make([]byte, framesync.L6FrameLength)
	copy(frame, framesync.L6Preamble)
	frame[4] = 193
	frame[5] = mtid
	copy(frame[6:6+l6.DataBytes], data.Bytes(data.Len()))
	return frame
}

func rtcmFrame(t *testing.T, payload *bitcursor.Buffer) []byte {
	frame, err := rtcm3.Encode(payload.Bytes(payload.Len()))
	require.NoError(t, err)
	return frame
}

// recorder counts the events.
type recorder struct {
	frames   int
	messages map[int]int
	stale    int
	dropped  map[string]int
	stats    []cssr.Statistics
}

func newRecorder() *recorder {
	return &recorder{messages: make(map[int]int), dropped: make(map[string]int)}
}

func (r *recorder) ObserveFrame(mode string) { r.frames++ }

func (r *recorder) ObserveMessage(subtype int, bits uint, stale bool) {
	r.messages[subtype]++
	if stale {
		r.stale++
	}
}

func (r *recorder) ObserveDropped(reason string) { r.dropped[reason]++ }

func (r *recorder) ObserveStatistics(stats cssr.Statistics) { r.stats = append(r.stats, stats) }

// collect calls DecodeNext until the input runs out.
func collect(t *testing.T, s *Session) ([]Outcome, error) {
	var outcomes []Outcome
	for i := 0; i < 100; i++ {
		outcome, err := s.DecodeNext()
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}
	t.Fatal("too many outcomes")
	return nil, nil
}

func kinds(outcomes []Outcome) []Kind {
	var result []Kind
	for _, o := range outcomes {
		result = append(result, o.Kind)
	}
	return result
}

func TestL6Session(t *testing.T) {
	// Subframe 1 is a mask and a clock message.
	var first bitcursor.Buffer
	mask(&first)
	clock(&first, 4)

	// Subframe 2 is a run of clock messages that spills into a second
	// data part.
	var long bitcursor.Buffer
	for long.Len() < l6.DataPartBits {
		clock(&long, 4)
	}
	var longPart1, longPart2 bitcursor.Buffer
	longData := long.Bytes(long.Len())
	longPart1.AppendRange(longData, 0, l6.DataPartBits)
	longPart2.AppendRange(longData, l6.DataPartBits, long.Len()-l6.DataPartBits)

	var input bytes.Buffer
	input.Write([]byte{0x01, 0x02, 0x03}) // junk
	input.Write(l6Frame(0xa1, &first))
	input.Write(l6Frame(0x31, &first)) // MADOCA, not CSSR
	input.Write(l6Frame(0xa1, &longPart1))
	input.Write(l6Frame(0xa0, &longPart2))

	rec := newRecorder()
	s := New(&input, L6, Options{Recorder: rec}, quietLogger)
	assert.Equal(t, L6, s.Mode())
	assert.NotEqual(t, uuid.Nil, s.ID)

	outcomes, err := collect(t, s)
	assert.ErrorIs(t, err, io.EOF)

	nClocks := int(long.Len() / 67)
	// Frame 1 gives the mask and a clock, frame 2 is dropped, frame 3
	// gives all but the last clock and frame 4 finishes it.
	want := []Kind{Message, Message, FrameDropped}
	for i := 0; i < nClocks; i++ {
		want = append(want, Message)
	}
	assert.Equal(t, want, kinds(outcomes))

	assert.Equal(t, 1, outcomes[0].Message.Record.Subtype())
	assert.ErrorIs(t, outcomes[2].Reason, l6.ErrUnsupportedVendor)
	for _, o := range outcomes[3:] {
		assert.Equal(t, 3, o.Message.Record.Subtype())
		assert.False(t, o.Message.Stale)
	}

	assert.Equal(t, 4, rec.frames)
	assert.Equal(t, 1, rec.messages[1])
	assert.Equal(t, 1+nClocks, rec.messages[3])
	assert.Equal(t, 1, rec.dropped["vendor"])
	require.Len(t, rec.stats, 1)
	assert.Equal(t, 2, rec.stats[0].Satellites)

	assert.NotNil(t, s.Mask())
	assert.Equal(t, 2, s.Statistics().Satellites)
}

func TestL6NotSynchronised(t *testing.T) {
	var b bitcursor.Buffer
	clock(&b, 4)

	var input bytes.Buffer
	input.Write(l6Frame(0xa1, &b))

	s := New(&input, L6, Options{}, quietLogger)
	outcomes, err := collect(t, s)
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, outcomes, 1)
	assert.Equal(t, FrameDropped, outcomes[0].Kind)
	assert.ErrorIs(t, outcomes[0].Reason, l6.ErrNotSynchronised)
}

func TestL6Continuation(t *testing.T) {
	// A message split across two data parts.
	var b bitcursor.Buffer
	mask(&b)
	for b.Len() < l6.DataPartBits+20 {
		clock(&b, 4)
	}
	data := b.Bytes(b.Len())
	var p1, p2 bitcursor.Buffer
	p1.AppendRange(data, 0, l6.DataPartBits)
	p2.AppendRange(data, l6.DataPartBits, b.Len()-l6.DataPartBits)

	var input bytes.Buffer
	input.Write(l6Frame(0xa1, &p1))
	input.Write(l6Frame(0xa0, &p2))

	s := New(&input, L6, Options{}, quietLogger)
	var got []Kind
	var subtypes []int
	for {
		outcome, err := s.DecodeNext()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		got = append(got, outcome.Kind)
		if outcome.Kind == Message {
			subtypes = append(subtypes, outcome.Message.Header.Subtype)
		}
	}

	// One mask followed by all the clocks.
	require.NotEmpty(t, subtypes)
	assert.Equal(t, 1, subtypes[0])
	assert.Equal(t, int((b.Len()-110)/67)+1, len(subtypes))
	for _, k := range got {
		assert.Equal(t, Message, k)
	}
}

func TestRTCMSession(t *testing.T) {
	var m, c, stale bitcursor.Buffer
	mask(&m)
	clock(&c, 4)
	clock(&stale, 5)

	var other bitcursor.Buffer
	other.AppendUnsigned(1005, 12)
	other.AppendUnsigned(0, 140)

	var input bytes.Buffer
	input.Write(rtcmFrame(t, &c)) // before the mask
	input.Write(rtcmFrame(t, &m))
	input.Write([]byte{0xd3, 0x00, 0x02, 0x01, 0x02, 0x00, 0x00, 0x00}) // bad CRC
	input.Write(rtcmFrame(t, &other))
	input.Write(rtcmFrame(t, &c))
	input.Write(rtcmFrame(t, &stale))

	rec := newRecorder()
	s := New(&input, RTCM, Options{Recorder: rec}, quietLogger)
	outcomes, err := collect(t, s)
	assert.ErrorIs(t, err, io.EOF)

	want := []Kind{FrameDropped, Message, FrameDropped, FrameDropped, Message, Message}
	require.Equal(t, want, kinds(outcomes))

	assert.ErrorIs(t, outcomes[0].Reason, cssr.ErrMaskNotEstablished)
	assert.ErrorIs(t, outcomes[2].Reason, framesync.ErrChecksumMismatch)
	assert.ErrorIs(t, outcomes[3].Reason, ErrNotCSSR)
	assert.False(t, outcomes[4].Message.Stale)
	assert.True(t, outcomes[5].Message.Stale)

	// The re-encoded clock frame is the same as the input frame.
	frame, err := outcomes[4].RTCM()
	require.NoError(t, err)
	assert.Equal(t, rtcmFrame(t, &c), frame)

	assert.Equal(t, 1, rec.stale)
	assert.Equal(t, 1, rec.dropped["checksum"])
	assert.Equal(t, 1, rec.dropped["not_cssr"])
	assert.Equal(t, 1, rec.dropped["no_mask"])
}

func TestFatal(t *testing.T) {
	// No frames at all.
	input := bytes.NewReader(bytes.Repeat([]byte{0x55}, 2*framesync.MaxRTCMFrameLength))
	s := New(input, RTCM, Options{BufferLimit: 100}, quietLogger)

	outcome, err := s.DecodeNext()
	require.Error(t, err)
	assert.Equal(t, Fatal, outcome.Kind)
	assert.True(t, framesync.IsFatal(err))
	assert.True(t, errors.Is(outcome.Reason, framesync.ErrBufferExhausted))
}

// TestStraySyncByte checks that a 0xd3 byte claiming a long message costs
// one dropped frame and not the session.
func TestStraySyncByte(t *testing.T) {
	var m bitcursor.Buffer
	mask(&m)

	var input bytes.Buffer
	input.Write([]byte{0xd3, 0x03, 0xff})
	input.Write(rtcmFrame(t, &m))

	s := New(&input, RTCM, Options{}, quietLogger)
	outcomes, err := collect(t, s)
	assert.ErrorIs(t, err, io.EOF)
	require.Equal(t, []Kind{FrameDropped, Message}, kinds(outcomes))
	assert.ErrorIs(t, outcomes[0].Reason, framesync.ErrChecksumMismatch)
	assert.Equal(t, 1, outcomes[1].Message.Header.Subtype)
}

// ubxFrame wraps a payload in a UBX frame.
func ubxFrame(class, id byte, payload []byte) []byte {
	frame := []byte{0xb5, 0x62, class, id, byte(len(payload)), byte(len(payload) >> 8)}
	frame = append(frame, payload...)
	ckA, ckB := integrity.Checksum8(frame[2:])
	return append(frame, ckA, ckB)
}

// qzssL6 wraps an L6 frame in a UBX-RXM-QZSSL6 message.
func qzssL6(frame []byte) []byte {
	payload := make([]byte, qzssL6HeaderLen, qzssL6HeaderLen+len(frame))
	payload[0] = 1 // version
	payload[1] = 1 // PRN 193
	payload = append(payload, frame...)
	return ubxFrame(ubxClassRXM, ubxIDQZSSL6, payload)
}

func TestUBXSession(t *testing.T) {
	var first bitcursor.Buffer
	mask(&first)
	clock(&first, 4)

	var input bytes.Buffer
	input.Write(ubxFrame(0x01, 0x07, make([]byte, 92))) // NAV-PVT
	input.Write(qzssL6(l6Frame(0xa1, &first)))
	input.Write(ubxFrame(ubxClassRXM, ubxIDQZSSL6, make([]byte, 20))) // too short

	rec := newRecorder()
	s := New(&input, UBX, Options{Recorder: rec}, quietLogger)
	assert.Equal(t, UBX, s.Mode())

	outcomes, err := collect(t, s)
	assert.ErrorIs(t, err, io.EOF)
	require.Equal(t, []Kind{FrameDropped, Message, Message, FrameDropped}, kinds(outcomes))

	assert.ErrorIs(t, outcomes[0].Reason, ErrNotL6)
	assert.Equal(t, 1, outcomes[1].Message.Header.Subtype)
	assert.Equal(t, 3, outcomes[2].Message.Header.Subtype)
	assert.ErrorIs(t, outcomes[3].Reason, l6.ErrBadFrame)

	assert.Equal(t, 3, rec.frames)
	assert.Equal(t, 1, rec.dropped["not_l6"])
	assert.Equal(t, 1, rec.dropped["bad_frame"])
}

func TestTruncatedInput(t *testing.T) {
	var m bitcursor.Buffer
	mask(&m)
	frame := l6Frame(0xa1, &m)

	s := New(bytes.NewReader(frame[:100]), L6, Options{}, quietLogger)
	_, err := s.DecodeNext()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseMode(t *testing.T) {
	var testData = []struct {
		Input   string
		Want    Mode
		WantErr bool
	}{
		{"l6", L6, false},
		{"L6", L6, false},
		{"rtcm", RTCM, false},
		{"rtcm3", RTCM, false},
		{"UBX", UBX, false},
		{"sbf", L6, true},
	}

	for _, td := range testData {
		got, err := ParseMode(td.Input)
		if td.WantErr {
			assert.Error(t, err, td.Input)
			continue
		}
		assert.NoError(t, err, td.Input)
		assert.Equal(t, td.Want, got, td.Input)
	}

	assert.Equal(t, "l6", L6.String())
	assert.Equal(t, "rtcm", RTCM.String())
	assert.Equal(t, "ubx", UBX.String())
}

func TestOutcomeRTCMWithoutMessage(t *testing.T) {
	var o Outcome
	_, err := o.RTCM()
	assert.Error(t, err)
	assert.Equal(t, "frame dropped", FrameDropped.String())
}
