// The session package joins the pieces together: it reads an input stream,
// finds the frames in it, reassembles and decodes the CSSR messages and
// hands them back one at a time.  The input may be raw L6 frames, RTCM3
// frames, or the UBX output of a u-blox receiver that tracks L6.
//
// Each input stream needs its own Session.  A Session holds the decoder
// state for its stream (the current mask, the reassembly state and the
// statistics) and nothing is shared between sessions.
//
//	s := session.New(os.Stdin, session.L6, session.Options{}, logger)
//	for {
//		outcome, err := s.DecodeNext()
//		if err != nil {
//			break // End of input or fatal.
//		}
//		if outcome.Kind == session.Message {
//			frame, _ := outcome.RTCM()
//			...
//		}
//	}
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/goblimey/go-cssr/cssr"
	"github.com/goblimey/go-cssr/framesync"
	"github.com/goblimey/go-cssr/l6"
	"github.com/goblimey/go-cssr/rtcm3"
)

// Mode is the form of the input stream.
type Mode int

const (
	// L6 is a stream of QZS L6 frames.
	L6 Mode = iota
	// RTCM is a stream of RTCM3 frames, some of which are CSSR messages.
	RTCM
	// UBX is a stream of u-blox UBX frames from a receiver that tracks the
	// L6 signal.  The L6 frames are taken from the UBX-RXM-QZSSL6 messages.
	UBX
)

func (m Mode) String() string {
	switch m {
	case RTCM:
		return "rtcm"
	case UBX:
		return "ubx"
	default:
		return "l6"
	}
}

// ParseMode converts "l6", "rtcm" or "ubx" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "l6":
		return L6, nil
	case "rtcm", "rtcm3":
		return RTCM, nil
	case "ubx":
		return UBX, nil
	default:
		return L6, fmt.Errorf("unknown input format %q", s)
	}
}

var (
	// ErrNotCSSR means that an RTCM frame held some other message.
	ErrNotCSSR = errors.New("not a CSSR message")

	// ErrNotL6 means that a UBX frame held some other message.
	ErrNotL6 = errors.New("not a QZSS L6 message")
)

// The UBX-RXM-QZSSL6 message: a version, the satellite ID, C/No, a time
// tag, the group delay, the number of corrected bits, the channel
// information and two reserved bytes, then the L6 frame.
const (
	ubxClassRXM     = 0x02
	ubxIDQZSSL6     = 0x73
	qzssL6HeaderLen = 14
)

// Kind says what an Outcome holds.
type Kind int

const (
	// Message means that Outcome.Message is a decoded message.
	Message Kind = iota
	// NeedMoreData means that the input was read but no message was
	// completed.  Call DecodeNext again.
	NeedMoreData
	// FrameDropped means that a frame or a message was discarded.
	// Outcome.Reason says why.  The session can carry on.
	FrameDropped
	// Fatal means that the input can't be decoded any further.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Message:
		return "message"
	case NeedMoreData:
		return "need more data"
	case FrameDropped:
		return "frame dropped"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one DecodeNext.
type Outcome struct {
	Kind Kind
	// Message is set when Kind is Message.  A message whose IODSSR didn't
	// match the mask is returned with its Stale flag set.
	Message *cssr.Message
	// Reason is set when Kind is FrameDropped or Fatal.
	Reason error
}

// RTCM returns the message wrapped in an RTCM3 frame.
func (o *Outcome) RTCM() ([]byte, error) {
	if o.Message == nil {
		return nil, errors.New("no message")
	}
	return rtcm3.Encode(o.Message.Raw)
}

// Recorder receives decoding events, for example to keep metrics.
type Recorder interface {
	ObserveFrame(mode string)
	ObserveMessage(subtype int, bits uint, stale bool)
	ObserveDropped(reason string)
	ObserveStatistics(stats cssr.Statistics)
}

// Options controls a Session.
type Options struct {
	Decoder cssr.Options
	// BufferLimit is the number of bytes the frame scanner will discard
	// without finding a good frame before giving up.  Zero means
	// framesync.DefaultBufferLimit.
	BufferLimit int
	// Recorder, if not nil, is told about each frame and message.
	Recorder Recorder
}

// Session decodes one input stream.
type Session struct {
	// ID identifies the session in the log.
	ID uuid.UUID

	mode        Mode
	logger      *slog.Logger
	recorder    Recorder
	scanner     framesync.Scanner
	decoder     *cssr.Decoder
	reassembler *l6.Reassembler

	// queue holds messages from an L6 frame that completed more than one.
	queue []*cssr.Message
}

// New creates a Session reading from source.  If logger is nil the default
// logger is used.
func New(source io.Reader, mode Mode, options Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	logger = logger.With("session", id.String())

	s := Session{
		ID:       id,
		mode:     mode,
		logger:   logger,
		recorder: options.Recorder,
		decoder:  cssr.New(options.Decoder, logger),
	}
	switch mode {
	case RTCM:
		s.scanner = framesync.NewRTCMScanner(source, options.BufferLimit, logger)
	case UBX:
		s.scanner = framesync.NewUBXScanner(source, options.BufferLimit, logger)
		s.reassembler = l6.NewReassembler(s.decoder, logger)
	default:
		s.scanner = framesync.NewL6Scanner(source, options.BufferLimit, logger)
		s.reassembler = l6.NewReassembler(s.decoder, logger)
	}
	return &s
}

// Mode returns the input mode.
func (s *Session) Mode() Mode {
	return s.mode
}

// Statistics returns the decoder statistics since the last mask.
func (s *Session) Statistics() cssr.Statistics {
	return s.decoder.Statistics()
}

// Mask returns the current mask, nil before the first mask message.
func (s *Session) Mask() *cssr.Mask {
	return s.decoder.Mask()
}

// DecodeNext reads from the input until it has something to report.
//
// The error is only set at the end of the input (io.EOF, or
// io.ErrUnexpectedEOF if the input stops part way through a frame), when
// reading fails and when the outcome is Fatal.
func (s *Session) DecodeNext() (Outcome, error) {
	if len(s.queue) > 0 {
		return s.pop(), nil
	}

	frame, err := s.scanner.Next()
	if err != nil {
		switch {
		case errors.Is(err, framesync.ErrChecksumMismatch):
			return s.dropped(err), nil
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return Outcome{}, err
		default:
			s.logger.Error("input failed", "error", err)
			return Outcome{Kind: Fatal, Reason: err}, err
		}
	}

	if s.recorder != nil {
		s.recorder.ObserveFrame(s.mode.String())
	}

	switch s.mode {
	case RTCM:
		return s.decodeRTCM(frame), nil
	case UBX:
		return s.decodeUBX(frame), nil
	default:
		return s.decodeL6(frame), nil
	}
}

// decodeUBX handles one UBX frame.
func (s *Session) decodeUBX(frame []byte) Outcome {
	class, id := framesync.UBXClassAndID(frame)
	if class != ubxClassRXM || id != ubxIDQZSSL6 {
		s.logger.Debug("UBX message skipped", "class", class, "id", id)
		return s.dropped(fmt.Errorf("%w: UBX class %#x ID %#x", ErrNotL6, class, id))
	}
	payload := framesync.UBXPayload(frame)
	if len(payload) != qzssL6HeaderLen+framesync.L6FrameLength {
		return s.dropped(fmt.Errorf("%w: UBX-RXM-QZSSL6 payload of %d bytes",
			l6.ErrBadFrame, len(payload)))
	}
	return s.decodeL6(payload[qzssL6HeaderLen:])
}

// decodeL6 handles one L6 frame.
func (s *Session) decodeL6(data []byte) Outcome {
	frame, err := l6.ParseFrame(data)
	if err != nil {
		return s.dropped(err)
	}

	if !frame.Vendor().CarriesCSSR() {
		s.logger.Info(frame.String())
		return s.dropped(fmt.Errorf("%w: %s", l6.ErrUnsupportedVendor, frame.Vendor()))
	}

	messages, err := s.reassembler.Add(frame)
	s.logFrame(frame, messages)
	for _, m := range messages {
		s.push(m)
	}
	if err != nil {
		if len(s.queue) > 0 {
			// The messages before the failure are still good.
			s.logger.Warn("subframe abandoned", "error", err)
			if s.recorder != nil {
				s.recorder.ObserveDropped(reason(err))
			}
			return s.pop()
		}
		return s.dropped(err)
	}
	if len(s.queue) == 0 {
		return Outcome{Kind: NeedMoreData}
	}
	return s.pop()
}

// logFrame writes the frame log line: the frame, the subframe and part
// numbers and the subtypes it completed.
func (s *Session) logFrame(frame *l6.Frame, messages []*cssr.Message) {
	var sb strings.Builder
	sb.WriteString(frame.String())
	if s.reassembler.Subframe() != 0 {
		fmt.Fprintf(&sb, " SF%d DP%d", s.reassembler.Subframe(), s.reassembler.Part())
		if frame.Vendor() == l6.MADOCAPPP {
			fmt.Fprintf(&sb, " (%s %s)", frame.Service(), frame.Extension())
		}
	}
	for _, m := range messages {
		fmt.Fprintf(&sb, " ST%d", m.Header.Subtype)
	}
	if s.reassembler.State() == l6.Accumulating {
		sb.WriteString("...")
	}
	s.logger.Info(sb.String())
}

// decodeRTCM handles one RTCM3 frame.
func (s *Session) decodeRTCM(frame []byte) Outcome {
	message, err := rtcm3.DecodeHead(frame)
	if err != nil {
		return s.dropped(err)
	}
	if message.MessageType != cssr.MessageNumber {
		s.logger.Debug("RTCM message skipped", "type", message.MessageType)
		return s.dropped(fmt.Errorf("%w: message type %d", ErrNotCSSR, message.MessageType))
	}

	m, err := s.decoder.DecodeMessage(message.Payload)
	if err != nil && !errors.Is(err, cssr.ErrIODMismatch) {
		return s.dropped(err)
	}
	s.push(m)
	return s.pop()
}

// push queues a message and records it.
func (s *Session) push(m *cssr.Message) {
	s.queue = append(s.queue, m)
	if s.recorder == nil {
		return
	}
	s.recorder.ObserveMessage(m.Header.Subtype, m.Bits, m.Stale)
	if m.Header.Subtype == 1 {
		s.recorder.ObserveStatistics(s.decoder.Statistics())
	}
}

func (s *Session) pop() Outcome {
	m := s.queue[0]
	s.queue = s.queue[1:]
	return Outcome{Kind: Message, Message: m}
}

// dropped returns a FrameDropped outcome.
func (s *Session) dropped(err error) Outcome {
	s.logger.Debug("frame dropped", "reason", err)
	if s.recorder != nil {
		s.recorder.ObserveDropped(reason(err))
	}
	return Outcome{Kind: FrameDropped, Reason: err}
}

// reason returns a short label for a dropped frame, for metrics.
func reason(err error) string {
	for _, r := range []struct {
		err   error
		label string
	}{
		{framesync.ErrChecksumMismatch, "checksum"},
		{l6.ErrUnsupportedVendor, "vendor"},
		{l6.ErrTooManyDataParts, "data_parts"},
		{l6.ErrNotSynchronised, "no_mask"},
		{l6.ErrBadFrame, "bad_frame"},
		{ErrNotCSSR, "not_cssr"},
		{ErrNotL6, "not_l6"},
		{cssr.ErrNullData, "null"},
		{cssr.ErrMaskNotEstablished, "no_mask"},
		{cssr.ErrUnknownMessageNumber, "message_number"},
		{cssr.ErrUnknownSubtype, "subtype"},
		{cssr.ErrUnknownSystem, "system"},
		{cssr.ErrGridCountMismatch, "grid"},
		{cssr.ErrNeedMoreData, "short"},
	} {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
