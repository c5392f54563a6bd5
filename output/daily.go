// The output package writes the re-encoded RTCM3 frames.  DailyWriter
// writes them to a datestamped file, a new one each day, for example
// "cssr.20240301.rtcm3".  At the end of each day (UTC) the day's file is
// moved into the "ready" subdirectory to show that it's complete.  It's
// assumed that some other process watches that directory and does
// sensible things with the files that appear there.
//
// The file for a day is created by the first Write of that day, so if no
// frames arrive there is no file.
package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/goblimey/go-cssr/clock"
)

// ReadyDirectory is the subdirectory that finished files are moved to.
const ReadyDirectory = "ready"

// DailyWriter is an io.Writer that writes to a daily file.
type DailyWriter struct {
	mutex     sync.Mutex
	clock     clock.Clock
	directory string
	logger    *slog.Logger
	cronjob   *cron.Cron

	currentYYYYMMDD string
	file            *os.File
}

var _ io.WriteCloser = (*DailyWriter)(nil)

// NewDailyWriter creates a DailyWriter that writes to files in directory,
// creating it if necessary.
func NewDailyWriter(directory string, logger *slog.Logger) (*DailyWriter, error) {
	w, err := newDailyWriterWithClock(directory, clock.System(), logger)
	if err != nil {
		return nil, err
	}

	w.cronjob = cron.NewWithLocation(time.UTC)
	if err := w.cronjob.AddFunc("@midnight", w.endOfDay); err != nil {
		return nil, err
	}
	w.cronjob.Start()
	return w, nil
}

func newDailyWriterWithClock(directory string, c clock.Clock, logger *slog.Logger) (*DailyWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(directory, ReadyDirectory), 0755); err != nil {
		return nil, err
	}
	return &DailyWriter{clock: c, directory: directory, logger: logger}, nil
}

// Write writes the buffer to the day's file, creating the file at the
// start of each day.
func (w *DailyWriter) Write(buffer []byte) (int, error) {
	// Avoid a race with endOfDay.
	w.mutex.Lock()
	defer w.mutex.Unlock()

	yyyymmdd := w.todayYYYYMMDD()
	if w.file == nil || yyyymmdd != w.currentYYYYMMDD {
		// We have just started up or the day has rolled over.
		w.finish()
		file, err := openFile(w.Filename(yyyymmdd))
		if err != nil {
			return 0, err
		}
		w.logger.Info("start of day", "file", file.Name())
		w.currentYYYYMMDD = yyyymmdd
		w.file = file
	}

	return w.file.Write(buffer)
}

// Close stops the end of day job and closes the current file.  The file
// stays where it is, so a restart on the same day appends to it.
func (w *DailyWriter) Close() error {
	if w.cronjob != nil {
		w.cronjob.Stop()
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Filename returns the name of the file for the given day.
func (w *DailyWriter) Filename(yyyymmdd string) string {
	return filepath.Join(w.directory, "cssr."+yyyymmdd+".rtcm3")
}

// todayYYYYMMDD returns today's date in UTC in yyyymmdd format.
func (w *DailyWriter) todayYYYYMMDD() string {
	return w.clock.Now().In(time.UTC).Format("20060102")
}

// endOfDay closes the previous day's file.  It runs just after midnight.
// If no Write has happened since midnight the file is still open.
func (w *DailyWriter) endOfDay() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.file != nil && w.currentYYYYMMDD != w.todayYYYYMMDD() {
		w.finish()
	}
}

// finish closes the current file, if any, and moves it to the ready
// directory.  The caller must hold the mutex.
func (w *DailyWriter) finish() {
	if w.file == nil {
		return
	}
	name := w.file.Name()
	if err := w.file.Close(); err != nil {
		w.logger.Warn("error while closing output file, continuing", "file", name, "error", err)
	}
	w.file = nil

	ready := filepath.Join(w.directory, ReadyDirectory, filepath.Base(name))
	if err := os.Rename(name, ready); err != nil {
		w.logger.Error("cannot move output file", "file", name, "error", err)
		return
	}
	w.logger.Info("end of day", "file", ready)
}

// openFile creates the file or, if it already exists, opens it for
// appending.
func openFile(name string) (*os.File, error) {
	file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open output file: %w", err)
	}
	return file, nil
}
