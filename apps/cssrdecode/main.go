// cssrdecode reads QZS L6 frames or RTCM3-wrapped CSSR messages, decodes
// the CSSR messages and writes each one out again as an RTCM3 frame.  The
// input, the output and everything else are set in a JSON config file:
//
//	cssrdecode -c config.json
//
// See the jsonconfig package for the format.  By default the frames go to
// the standard output and the event log to the standard error, so it can
// be used in a pipeline:
//
//	cssrdecode -c clas.json | str2str -out tcpsvr://:2101
//
// If the output goes away (a broken pipe, say) it logs an error and stops.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"github.com/goblimey/go-cssr/apps/appcore"
	"github.com/goblimey/go-cssr/cssr"
	"github.com/goblimey/go-cssr/grid"
	"github.com/goblimey/go-cssr/jsonconfig"
	"github.com/goblimey/go-cssr/logging"
	"github.com/goblimey/go-cssr/metrics"
	"github.com/goblimey/go-cssr/output"
	"github.com/goblimey/go-cssr/rtcm3"
	"github.com/goblimey/go-cssr/session"
	"github.com/goblimey/go-cssr/sink/influx"
)

// channelCapacity is the capacity of each output channel.
const channelCapacity = 100

// errOutput is returned by run when the RTCM output fails.
var errOutput = errors.New("RTCM output failed")

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

	conf, err := jsonconfig.GetJSONConfigFromFile(configFileName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.EventLog, conf.Level())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// A write to a closed pipe on the standard output would otherwise kill
	// the process before the failure could be logged.
	signal.Ignore(syscall.SIGPIPE)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, conf, logger.Logger, os.Stdout)
	stop()
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}

// run decodes the input named in the config and writes the RTCM3 frames
// to the output until the input is exhausted, the output fails or ctx is
// cancelled.
func run(ctx context.Context, conf *jsonconfig.Config, logger *slog.Logger, stdout io.Writer) error {
	options := session.Options{
		Decoder:     cssr.Options{BeiDou3Signals: conf.BeiDou3Signals},
		BufferLimit: conf.BufferLimit,
	}

	// A nil *grid.Table in the interface would reject every network, so
	// only set it when there is a table.
	if conf.GridFile != "" {
		table, err := grid.LoadFile(conf.GridFile)
		if err != nil {
			logger.Error("cannot load the grid table", "error", err)
			return err
		}
		logger.Info("grid table loaded", "networks", table.Len())
		options.Decoder.Grids = table
	}

	if conf.MetricsAddress != "" {
		recorder := metrics.New()
		options.Recorder = recorder
		server := serveMetrics(conf.MetricsAddress, recorder, logger)
		defer server.Close()
	}

	writer, closeWriter, err := openOutput(conf, logger, stdout)
	if err != nil {
		logger.Error("cannot open the output", "error", err)
		return err
	}
	defer closeWriter()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var outputErr error
	rtcmChan := make(chan *cssr.Message, channelCapacity)
	channels := []chan *cssr.Message{rtcmChan}
	wg.Add(1)
	go func() {
		defer wg.Done()
		outputErr = writeRTCM(rtcmChan, writer, logger)
		if outputErr != nil {
			cancel()
		}
	}()

	if conf.Influx != nil {
		influxChan := make(chan *cssr.Message, channelCapacity)
		channels = append(channels, influxChan)
		sink := influx.New(conf.Influx.URL, conf.Influx.Token, conf.Influx.Org, conf.Influx.Bucket, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sink.Close()
			for m := range influxChan {
				sink.Write(m, time.Now())
			}
		}()
	}

	core := appcore.New(conf, options, channels, logger)

	if conf.StatisticsSchedule != "" {
		cronjob := cron.NewWithLocation(time.UTC)
		err := cronjob.AddFunc(conf.StatisticsSchedule, func() {
			if stats, ok := core.Statistics(); ok {
				logger.Info("statistics " + stats.String())
			}
		})
		if err != nil {
			return err
		}
		cronjob.Start()
		defer cronjob.Stop()
	}

	err = core.HandleMessages(ctx)
	for _, c := range channels {
		close(c)
	}
	wg.Wait()

	switch {
	case outputErr != nil:
		return errOutput
	case errors.Is(err, context.Canceled):
		logger.Info("stopped")
		return nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		logger.Warn("the input ends part way through a frame")
	case err != nil:
		logger.Error("decoding stopped", "error", err)
		return err
	}
	return nil
}

// writeRTCM writes each message to w as an RTCM3 frame.  It returns when
// the channel is closed, or straight away if a write fails.
func writeRTCM(messages chan *cssr.Message, w io.Writer, logger *slog.Logger) error {
	for m := range messages {
		frame, err := rtcm3.Encode(m.Raw)
		if err != nil {
			logger.Warn("cannot encode message", "subtype", m.Header.Subtype, "error", err)
			continue
		}
		if _, err := w.Write(frame); err != nil {
			logger.Error("cannot write to the output, stopping", "error", err)
			return err
		}
	}
	return nil
}

// openOutput opens the RTCM output named in the config.
func openOutput(conf *jsonconfig.Config, logger *slog.Logger, stdout io.Writer) (io.Writer, func(), error) {
	if conf.RTCMOutputDirectory != "" {
		w, err := output.NewDailyWriter(conf.RTCMOutputDirectory, logger)
		if err != nil {
			return nil, nil, err
		}
		return w, func() { w.Close() }, nil
	}

	if conf.RTCMOutput == "" || conf.RTCMOutput == jsonconfig.Stdin {
		return stdout, func() {}, nil
	}

	file, err := os.OpenFile(conf.RTCMOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { file.Close() }, nil
}

// serveMetrics starts an HTTP server for the prometheus metrics.
func serveMetrics(address string, recorder *metrics.Recorder, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{Addr: address, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server
}
