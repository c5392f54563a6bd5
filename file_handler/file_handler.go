// The filehandler package supplies a reader for an input that may be
// still being written, for example a serial line fed by a GNSS receiver or
// a capture file that another program is appending to.  Such an input
// often returns EOF just because there is no data to read at the moment.
// The Handler retries on EOF until nothing has arrived for a while.
package filehandler

import (
	"io"
	"time"

	"github.com/goblimey/go-cssr/clock"
)

// Handler is an io.Reader that retries reads on EOF.
type Handler struct {
	// RetryIntervalOnEOF is the time to wait between retries on EOF.
	RetryIntervalOnEOF time.Duration
	// EOFTimeout is how long to keep retrying.  Zero means return EOF
	// straight away, which suits a file that is no longer being written.
	EOFTimeout time.Duration

	source io.Reader
	clock  clock.Clock
	sleep  func(time.Duration)

	// timeOfFirstEOF is set when the read has returned EOF one or more times
	// in a row.  It's nil after a successful read.
	timeOfFirstEOF *time.Time
}

var _ io.Reader = (*Handler)(nil)

// New creates a Handler reading from source.
func New(source io.Reader, retryIntervalOnEOF, eofTimeout time.Duration) *Handler {
	return newWithClock(source, retryIntervalOnEOF, eofTimeout, clock.System(), time.Sleep)
}

func newWithClock(source io.Reader, retryIntervalOnEOF, eofTimeout time.Duration,
	c clock.Clock, sleep func(time.Duration)) *Handler {

	return &Handler{
		RetryIntervalOnEOF: retryIntervalOnEOF,
		EOFTimeout:         eofTimeout,
		source:             source,
		clock:              c,
		sleep:              sleep,
	}
}

// Read reads from the source.  On EOF it pauses and tries again until
// EOFTimeout has passed since the first of a run of EOFs, then it returns
// io.EOF.  Any other error is returned immediately.
func (h *Handler) Read(buffer []byte) (int, error) {
	for {
		n, err := h.source.Read(buffer)
		if n > 0 {
			// Got some data.  Reset the timeout.  EOF can wait for the
			// next call.
			h.timeOfFirstEOF = nil
			if err == io.EOF {
				err = nil
			}
			return n, err
		}

		if err == nil {
			continue
		}

		if err != io.EOF {
			return 0, err
		}

		if h.EOFTimeout == 0 {
			return 0, io.EOF
		}

		now := h.clock.Now()
		if h.timeOfFirstEOF == nil {
			h.timeOfFirstEOF = &now
		} else if now.Sub(*h.timeOfFirstEOF) > h.EOFTimeout {
			return 0, io.EOF
		}

		h.sleep(h.RetryIntervalOnEOF)
	}
}
