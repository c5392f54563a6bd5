// The jsonconfig package reads the JSON configuration file shared by the
// CSSR applications and connects to the input that it names.
//
// An example config file:
//
//	{
//		"input": ["/dev/ttyACM0", "/dev/ttyACM1"],
//		"format": "l6",
//		"serial": {
//			"speed": 115200,
//			"parity": "no_parity",
//			"data_bits": 8,
//			"stop_bits": 1,
//			"read_timeout_milliseconds": 3000
//		},
//		"wait_time_on_EOF_millis": 100,
//		"timeout_on_EOF_millis": 5000,
//		"sleep_time": 2,
//		"rtcm_output": "-",
//		"event_log": "/var/log/cssr/events.log",
//		"log_level": "info",
//		"grid_file": "grids.yaml",
//		"statistics_schedule": "@every 1m",
//		"metrics_address": ":9100",
//		"influx": {
//			"url": "http://localhost:8086",
//			"token": "secret",
//			"org": "gnss",
//			"bucket": "cssr"
//		}
//	}
//
// This example suits a Raspberry Pi reading L6 frames from a receiver over
// a serial USB connection.  The device names "/dev/ttyACM0" etc are used in
// turn: if the receiver loses power briefly it comes back as the next one,
// so the config lists all the names that it may appear under.  With no
// "serial" section the inputs are opened as plain files, which suits a
// capture file.
package jsonconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron"
	"go.bug.st/serial"

	"github.com/goblimey/go-cssr/session"
)

// Stdin is the input or output name that means the standard input or output.
const Stdin = "-"

// Config contains the values from the JSON config file.
type Config struct {
	// Filenames is the list of inputs to try, in order.
	Filenames []string `json:"input"`

	// Format is the input format: "l6", "rtcm" or "ubx".  The default is l6.
	Format string `json:"format"`

	// Serial, if present, says that the inputs are serial ports and how to
	// set them up.
	Serial *SerialConfig `json:"serial"`

	// WaitTimeOnEOFMilliseconds is the time to wait between reads when the
	// input returns EOF.
	WaitTimeOnEOFMilliseconds uint `json:"wait_time_on_EOF_millis"`

	// TimeoutOnEOFMilliseconds is how long to keep retrying on EOF.  Zero
	// means stop at the first EOF, which suits a file.
	TimeoutOnEOFMilliseconds uint `json:"timeout_on_EOF_millis"`

	// LostInputConnectionSleepTime is the time in seconds to sleep between
	// attempts to connect to the input.
	LostInputConnectionSleepTime uint `json:"sleep_time"`

	// RTCMOutput is the file to write the RTCM3 frames to.  "-" or empty
	// means the standard output.
	RTCMOutput string `json:"rtcm_output"`

	// RTCMOutputDirectory, if set, overrides RTCMOutput.  The frames are
	// written to a datestamped file in that directory, a new one each day.
	RTCMOutputDirectory string `json:"rtcm_output_directory"`

	// EventLog is the event log file.  Empty means the standard error.
	EventLog string `json:"event_log"`

	// LogLevel is debug, info, warn or error.  The default is info.
	LogLevel string `json:"log_level"`

	// GridFile is the YAML grid network table.  If it's not set, the grid
	// point counts in ST9 and ST12 messages are not checked.
	GridFile string `json:"grid_file"`

	// BufferLimit is the number of bytes the frame scanner will discard
	// between good frames before it gives up.  Anything less than the
	// longest legal frame is raised to that.
	BufferLimit int `json:"buffer_limit"`

	// BeiDou3Signals selects the BDS-3 signal names.
	BeiDou3Signals bool `json:"beidou3_signals"`

	// StatisticsSchedule is a cron schedule for logging the decoder
	// statistics, for example "@every 1m".  Empty means no report.
	StatisticsSchedule string `json:"statistics_schedule"`

	// MetricsAddress, if set, is the address to serve prometheus metrics on.
	MetricsAddress string `json:"metrics_address"`

	// Influx, if present, sends the decoded corrections to InfluxDB.
	Influx *InfluxConfig `json:"influx"`

	// logging is set until the first input has been found.  After that the
	// connection attempts are not logged.
	logging bool
}

// SerialConfig holds the serial line settings.
type SerialConfig struct {
	// Speed is the line speed in bits per second.  The default is 9600.
	Speed int `json:"speed"`

	// Parity is no_parity (the default), odd_parity, even_parity,
	// mark_parity or space_parity.
	Parity string `json:"parity"`

	// DataBits is the number of data bits in the byte: 5-8.
	DataBits int `json:"data_bits"`

	// StopBits is the number of stop bits: 1, 1.5 or 2.
	StopBits float32 `json:"stop_bits"`

	// InitialStatusBits contains "dtr" and/or "rts".  The named lines are
	// set true when the port is opened, the others false.  If it's empty
	// both are set true.
	InitialStatusBits []string `json:"initial_status_bits"`

	// ReadTimeoutMilliseconds is the read timeout.  Zero means block.
	ReadTimeoutMilliseconds int `json:"read_timeout_milliseconds"`
}

// InfluxConfig holds the InfluxDB connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// GetJSONConfigFromFile gets the config from the file given by configFileName.
func GetJSONConfigFromFile(configFileName string) (*Config, error) {
	jsonReader, err := os.Open(configFileName)
	if err != nil {
		return nil, err
	}
	defer jsonReader.Close()

	return GetJSONConfig(jsonReader)
}

// GetJSONConfig reads the config from the given source and checks it.
func GetJSONConfig(jsonSource io.Reader) (*Config, error) {
	jsonBytes, err := io.ReadAll(jsonSource)
	if err != nil {
		return nil, fmt.Errorf("cannot read the JSON config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(jsonBytes, &config); err != nil {
		return nil, fmt.Errorf("cannot parse the JSON config: %w", err)
	}

	if err := config.check(); err != nil {
		return nil, err
	}

	config.logging = true

	return &config, nil
}

// check checks the values that can be checked without opening anything.
func (config *Config) check() error {
	if _, err := config.Mode(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if config.Serial != nil {
		if _, err := config.Serial.Mode(); err != nil {
			return err
		}
	}
	if config.StatisticsSchedule != "" {
		if _, err := cron.Parse(config.StatisticsSchedule); err != nil {
			return fmt.Errorf("config: statistics schedule %q: %w", config.StatisticsSchedule, err)
		}
	}
	if config.Influx != nil && (config.Influx.URL == "" || config.Influx.Bucket == "") {
		return errors.New("config: influx needs a url and a bucket")
	}
	return nil
}

// Mode returns the input format.
func (config *Config) Mode() (session.Mode, error) {
	if config.Format == "" {
		return session.L6, nil
	}
	return session.ParseMode(config.Format)
}

// Level returns the log level.
func (config *Config) Level() slog.Level {
	level, _ := ParseLevel(config.LogLevel)
	return level
}

// ParseLevel converts a level name to a slog.Level.  Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

// WaitTimeOnEOF returns the time to wait between reads on EOF.
func (config *Config) WaitTimeOnEOF() time.Duration {
	return time.Duration(config.WaitTimeOnEOFMilliseconds) * time.Millisecond
}

// TimeoutOnEOF returns how long to keep retrying on EOF.
func (config *Config) TimeoutOnEOF() time.Duration {
	return time.Duration(config.TimeoutOnEOFMilliseconds) * time.Millisecond
}

// SleepTime returns the time to sleep between connection attempts.
func (config *Config) SleepTime() time.Duration {
	return time.Duration(config.LostInputConnectionSleepTime) * time.Second
}

// Mode converts the serial settings into a serial.Mode.
func (sc *SerialConfig) Mode() (*serial.Mode, error) {
	mode := serial.Mode{BaudRate: 9600}
	if sc.Speed != 0 {
		mode.BaudRate = sc.Speed
	}

	switch sc.Parity {
	case "", "no_parity":
		mode.Parity = serial.NoParity
	case "odd_parity":
		mode.Parity = serial.OddParity
	case "even_parity":
		mode.Parity = serial.EvenParity
	case "mark_parity":
		mode.Parity = serial.MarkParity
	case "space_parity":
		mode.Parity = serial.SpaceParity
	default:
		return nil, errors.New("config: illegal parity value " + sc.Parity)
	}

	// Must be 5-8.
	if sc.DataBits > 0 {
		if sc.DataBits < 5 || sc.DataBits > 8 {
			return nil, fmt.Errorf("config: data bits must be 5-8, got %d", sc.DataBits)
		}
		mode.DataBits = sc.DataBits
	}

	switch sc.StopBits {
	case 0, 1:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("config: stop bit value must be 1, 1.5 or 2, got %g", sc.StopBits)
	}

	if len(sc.InitialStatusBits) > 0 {
		var bits serial.ModemOutputBits
		for _, b := range sc.InitialStatusBits {
			switch strings.ToLower(b) {
			case "dtr":
				bits.DTR = true
			case "rts":
				bits.RTS = true
			default:
				return nil, errors.New("config: illegal initial status bit value " + b)
			}
		}
		mode.InitialStatusBits = &bits
	}

	return &mode, nil
}

// ReadTimeout returns the serial read timeout.
func (sc *SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(sc.ReadTimeoutMilliseconds) * time.Millisecond
}

// WaitAndConnectToInput tries repeatedly (potentially indefinitely) to
// connect to one of the inputs in the config.  It returns the connection
// and the name of the input.
func (config *Config) WaitAndConnectToInput(logger *slog.Logger) (io.ReadCloser, string) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		reader, name := config.findInput(logger)
		if reader != nil {
			logger.Info("connected to GNSS source", "input", name)
			return reader, name
		}
		if config.logging {
			logger.Warn("failed to connect to GNSS source, retrying")
		}
		time.Sleep(config.SleepTime())
	}
}

// findInput returns a connection to the first input in the list that it
// can open for reading, or nil if it can't open any of them.
func (config *Config) findInput(logger *slog.Logger) (io.ReadCloser, string) {
	for _, name := range config.Filenames {
		reader, err := config.open(name)
		if err != nil {
			if config.logging {
				logger.Debug("cannot open input", "input", name, "error", err)
			}
			continue
		}
		// Turn off logging after the first successful scan.
		config.logging = false
		return reader, name
	}
	return nil, ""
}

// open opens one input, as a serial port if the config has serial settings.
func (config *Config) open(name string) (io.ReadCloser, error) {
	if name == Stdin {
		return io.NopCloser(os.Stdin), nil
	}

	if config.Serial == nil {
		return os.Open(name)
	}

	mode, err := config.Serial.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if timeout := config.Serial.ReadTimeout(); timeout > 0 {
		if err := port.SetReadTimeout(timeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	return port, nil
}
