// The logging package builds the applications' event log.  Events go to
// the standard error, or to a file that is rotated at midnight UTC.  The
// rotated files are named after the time of rotation, for example
// "events-2024-03-01T00-00-00.000.log", and the oldest are removed once
// there are more than MaxBackups of them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron"
	"gopkg.in/natefinch/lumberjack.v2"
)

// MaxBackups is the number of rotated log files kept.
const MaxBackups = 31

// RotationSchedule is the cron schedule for rotating the log file.
const RotationSchedule = "@midnight"

// Logger is a slog.Logger that may own a log file.
type Logger struct {
	*slog.Logger
	file    *lumberjack.Logger
	cronjob *cron.Cron
}

// New creates a Logger at the given level.  If filename is empty it writes
// to the standard error, otherwise to the named file.
func New(filename string, level slog.Level) (*Logger, error) {
	if filename == "" {
		return NewWithWriter(os.Stderr, level), nil
	}

	file := &lumberjack.Logger{
		Filename:   filename,
		MaxBackups: MaxBackups,
	}

	l := Logger{
		Logger:  newLogger(file, level),
		file:    file,
		cronjob: cron.NewWithLocation(time.UTC),
	}
	if err := l.cronjob.AddFunc(RotationSchedule, l.rotate); err != nil {
		return nil, err
	}
	l.cronjob.Start()
	return &l, nil
}

// NewWithWriter creates a Logger that writes to w.
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	return &Logger{Logger: newLogger(w, level)}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// rotate starts a new log file.
func (l *Logger) rotate() {
	if err := l.file.Rotate(); err != nil {
		// Nowhere better to say so.
		os.Stderr.WriteString("cannot rotate the event log: " + err.Error() + "\n")
		return
	}
	l.Info("event log rotated")
}

// Close stops the rotation and closes the file, if there is one.
func (l *Logger) Close() error {
	if l.cronjob != nil {
		l.cronjob.Stop()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
