// serial_grabber copies the byte stream from a receiver on a serial USB
// port to the standard output, for example to make an L6 capture file for
// cssrdecode:
//
//	serial_grabber -c config.json >capture.l6
//
// It uses the "input", "serial" and "sleep_time" settings from the config.
// When the port dries up it closes it and goes back to looking for the
// receiver, which may come back under a different device name.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/goblimey/go-cssr/jsonconfig"
	"github.com/goblimey/go-cssr/logging"
)

// bufferSize is the size of the read buffer.
const bufferSize = 4096

var errTimeout = errors.New("timeout")

func main() {
	// Get the name of the config file (mandatory).
	var configFileName string
	flag.StringVar(&configFileName, "c", "", "JSON config file")
	flag.StringVar(&configFileName, "config", "", "JSON config file")
	flag.Parse()

	if len(configFileName) == 0 {
		fmt.Fprintln(os.Stderr, "missing config file: -c or --config")
		os.Exit(2)
	}

	config, err := jsonconfig.GetJSONConfigFromFile(configFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if config.Serial == nil {
		fmt.Fprintln(os.Stderr, "the config has no serial settings")
		os.Exit(1)
	}

	logger, err := logging.New(config.EventLog, config.Level())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Close()

	signal.Ignore(syscall.SIGPIPE)

	if err := GrabFromPorts(config, logger.Logger, os.Stdout); err != nil {
		logger.Error(err.Error())
		logger.Close()
		os.Exit(1)
	}
}

// GrabFromPorts loops until forcibly stopped or the output fails.  It gets
// the list of serial ports and compares that with the list of inputs in
// the config.  On the first match it opens that port, copies from it to
// out until the read times out, then it repeats all that.
func GrabFromPorts(config *jsonconfig.Config, logger *slog.Logger, out io.Writer) error {
	// atStart controls the handling of the problem that no serial ports
	// are found.  If this happens at the very start it's an error.  If it
	// happens later, we wait quietly until ports appear.
	atStart := true

	for {
		knownSerialPorts, err := serial.GetPortsList()
		if atStart {
			if err != nil {
				return fmt.Errorf("error getting active serial ports: %w", err)
			}
			if len(knownSerialPorts) == 0 {
				return errors.New("no active serial ports found")
			}
			atStart = false
		}

		name, ok := MatchPort(config.Filenames, knownSerialPorts)
		if !ok {
			time.Sleep(config.SleepTime())
			continue
		}

		port, err := OpenPort(config.Serial, name)
		if err != nil {
			logger.Warn("cannot open port", "port", name, "error", err)
			time.Sleep(config.SleepTime())
			continue
		}
		logger.Info("reading", "port", name)

		errGrab := GrabFromPort(port, out)
		port.Close()
		var writeErr *writeError
		if errors.As(errGrab, &writeErr) {
			return writeErr
		}
		logger.Info("port dried up", "port", name, "error", errGrab)

		time.Sleep(config.SleepTime())
	}
}

// writeError is a failure to write to the output.
type writeError struct {
	err error
}

func (e *writeError) Error() string { return "output: " + e.err.Error() }

func (e *writeError) Unwrap() error { return e.err }

// GrabFromPort copies from the port to out until a read fails or times
// out.  A read timeout shows up as a read of zero bytes.
func GrabFromPort(port io.Reader, out io.Writer) error {
	buffer := make([]byte, bufferSize)
	for {
		n, err := port.Read(buffer)
		if err != nil {
			return err
		}
		if n == 0 {
			return errTimeout
		}
		if _, err := out.Write(buffer[:n]); err != nil {
			return &writeError{err: err}
		}
	}
}

// MatchPort returns the first of the wanted names that is in the list of
// known ports.
func MatchPort(wanted, knownSerialPorts []string) (string, bool) {
	for _, name := range wanted {
		for _, port := range knownSerialPorts {
			if name == port {
				return name, true
			}
		}
	}
	return "", false
}

// OpenPort opens a serial port with the configured settings.
func OpenPort(sc *jsonconfig.SerialConfig, name string) (serial.Port, error) {
	mode, err := sc.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(sc.ReadTimeout()); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}
