// This is the core of the CSSR applications.  It reads from the input
// named in the config (typically either a capture file or a serial line
// connected to a receiver), decodes the CSSR messages and sends each one
// to a set of channels.  Something listens to each channel and does
// something with the messages, for example writes them out as RTCM3.
package appcore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/goblimey/go-cssr/cssr"
	filehandler "github.com/goblimey/go-cssr/file_handler"
	"github.com/goblimey/go-cssr/jsonconfig"
	"github.com/goblimey/go-cssr/session"
)

type AppCore struct {
	Conf     *jsonconfig.Config
	Options  session.Options
	Channels []chan *cssr.Message
	Logger   *slog.Logger

	// stats is a copy of the current session's statistics, taken after
	// each decode so that it can be read from another goroutine.
	mutex     sync.Mutex
	stats     cssr.Statistics
	haveStats bool
}

func New(conf *jsonconfig.Config, options session.Options, channels []chan *cssr.Message,
	logger *slog.Logger) *AppCore {

	if logger == nil {
		logger = slog.Default()
	}
	return &AppCore{Conf: conf, Options: options, Channels: channels, Logger: logger}
}

// HandleMessages repeatedly searches for and reads the inputs specified in
// the config, decodes the messages and sends them to the channels.
//
// If the config has serial settings, the inputs are taken to be the
// device names of a receiver that sends data indefinitely.  If the
// connection is lost and then restored, the device name may be different
// this time, so the config lists all the possible names and HandleMessages
// goes back to searching.  Each connection gets a fresh session, so
// nothing is decoded until the next mask arrives.  Otherwise the input is
// a file and HandleMessages returns when it's exhausted.
//
// It also returns when ctx is cancelled, with the context's error.
func (appCore *AppCore) HandleMessages(ctx context.Context) error {
	for {
		r, name := appCore.Conf.WaitAndConnectToInput(appCore.Logger)
		err := appCore.handleInput(ctx, r, name)
		r.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if appCore.Conf.Serial == nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		appCore.Logger.Warn("input lost, reconnecting", "input", name, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(appCore.Conf.SleepTime()):
		}
	}
}

func (appCore *AppCore) handleInput(ctx context.Context, r io.Reader, name string) error {
	reader := filehandler.New(r, appCore.Conf.WaitTimeOnEOF(), appCore.Conf.TimeoutOnEOF())
	input, err := OpenInput(reader, name)
	if err != nil {
		return err
	}
	defer input.Close()
	return appCore.HandleMessagesUntilEOF(ctx, input)
}

// OpenInput returns a reader for the named input.  A name ending ".zst" is
// a zstd-compressed capture and is decompressed on the fly.
func OpenInput(r io.Reader, name string) (io.ReadCloser, error) {
	if !strings.HasSuffix(name, ".zst") {
		return io.NopCloser(r), nil
	}
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// HandleMessagesUntilEOF creates a session reading from the given reader
// and runs it until the input ends, the session hits a fatal error or ctx
// is cancelled.  It sends each decoded message to each of the channels.
// It returns the error that stopped it, io.EOF at the end of the input.
func (appCore *AppCore) HandleMessagesUntilEOF(ctx context.Context, reader io.Reader) error {
	mode, err := appCore.Conf.Mode()
	if err != nil {
		return err
	}

	s := session.New(reader, mode, appCore.Options, appCore.Logger)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome, err := s.DecodeNext()
		appCore.mutex.Lock()
		appCore.stats = s.Statistics()
		appCore.haveStats = true
		appCore.mutex.Unlock()
		if err != nil {
			return err
		}
		if outcome.Kind != session.Message {
			continue
		}

		for i := range appCore.Channels {
			if appCore.Channels[i] == nil {
				continue
			}
			select {
			case appCore.Channels[i] <- outcome.Message:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Statistics returns the statistics of the current session and false if
// nothing has been decoded yet.
func (appCore *AppCore) Statistics() (cssr.Statistics, bool) {
	appCore.mutex.Lock()
	defer appCore.mutex.Unlock()
	return appCore.stats, appCore.haveStats
}
