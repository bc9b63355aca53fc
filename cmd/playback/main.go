// Command playback plays wav, mp3 or ogg file through a PulseAudio or
// PortAudio output. Each line read from stdin is a name of the device to
// switch the playback to, empty line selects the default device.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"pipelined.dev/playback"
	"pipelined.dev/playback/log"
	"pipelined.dev/playback/metric"
	"pipelined.dev/playback/mp3"
	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/ogg"
	"pipelined.dev/playback/pipe"
	"pipelined.dev/playback/portaudio"
	"pipelined.dev/playback/pulseaudio"
	"pipelined.dev/playback/wav"
)

var (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin))
}

func run(args []string, devices io.Reader) int {
	logger := log.GetLogger()
	c, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: playback [flags] FILE\n%s\n", flagSet().FlagUsages())
		logger.WithError(err).Error("invalid configuration")
		return errorExitCode
	}
	if c.metricsAddr != "" {
		srv := &http.Server{Addr: c.metricsAddr}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("metrics server failed")
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := play(ctx, logger, c, devices); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("playback failed")
		return errorExitCode
	}
	return successExitCode
}

func play(ctx context.Context, logger *logrus.Logger, c config, devices io.Reader) error {
	f, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer f.Close()
	source, err := fileSource(f, c.channel)
	if err != nil {
		return err
	}

	var sink *playback.Sink
	p, err := pipe.New(c.bufferSize, pipe.Line{
		Source: source,
		// sink is created when the sample rate of the file is known.
		Sink: func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
			var openErr error
			if sink, openErr = newSink(logger, c, input.SampleRate); sink == nil {
				return pipe.Sink{}, openErr
			}
			return sink.Sink()(mctx, bufferSize, input)
		},
	})
	if sink != nil {
		defer sink.Close()
	}
	if err != nil {
		return err
	}

	r := pipe.Run(ctx, p)
	go switchDevices(ctx, r, sink, devices)
	return r.Wait()
}

// newSink returns degraded sink with error if device cannot be opened.
func newSink(logger *logrus.Logger, c config, sampleRate int) (*playback.Sink, error) {
	var server playback.Server
	switch c.backend {
	case backendPortAudio:
		server = portaudio.NewServer()
	default:
		server = pulseaudio.NewServer(pulseaudio.WithLogger(logger))
	}
	return playback.New(server, sampleRate,
		playback.WithDevice(c.device),
		playback.WithAppName(c.appName),
		playback.WithStreamName(c.streamName),
		playback.WithLatency(c.latency),
		playback.WithAutoFlush(c.autoFlush),
		playback.WithLogger(logger.WithFields(logrus.Fields{
			"app":     c.appName,
			"stream":  c.streamName,
			"backend": c.backend,
		})),
		playback.WithMetric(metric.Get(c.streamName)),
	)
}

func fileSource(f *os.File, channel int) (pipe.SourceAllocatorFunc, error) {
	switch ext := strings.ToLower(filepath.Ext(f.Name())); ext {
	case ".wav":
		return wav.Source(f, channel), nil
	case ".mp3":
		return mp3.Source(f, channel), nil
	case ".ogg":
		return ogg.Source(f, channel), nil
	default:
		return nil, fmt.Errorf("unsupported file format: %q", ext)
	}
}

// switchDevices pushes device mutation for every line read from r.
func switchDevices(ctx context.Context, r *pipe.Runner, sink *playback.Sink, devices io.Reader) {
	scanner := bufio.NewScanner(devices)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		r.Push(sink.DeviceMutation(strings.TrimSpace(scanner.Text())))
	}
}
