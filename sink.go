package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/playback/log"
	"pipelined.dev/playback/metric"
	"pipelined.dev/playback/mutable"
)

type (
	// Sink writes mono float signal into the audio server. It owns at
	// most one open stream at a time. Sink is not safe for concurrent
	// use: all methods must be called from the same goroutine, which is
	// the case when it runs in a pipe.
	Sink struct {
		mctx       mutable.Context
		server     Server
		config     StreamConfig
		appName    string
		streamName string
		latency    time.Duration
		device     string
		stream     Stream
		closed     bool
		flush      flushTimer
		log        logrus.FieldLogger
		metric     *metric.Sink
		handler    func(error)
		buf        []float32
	}

	// Option configures the sink.
	Option func(*Sink)
)

// WithDevice sets the output device. Empty name selects the server
// default.
func WithDevice(device string) Option {
	return func(s *Sink) {
		s.device = device
	}
}

// WithAppName sets the application name reported to the server.
func WithAppName(name string) Option {
	return func(s *Sink) {
		s.appName = name
	}
}

// WithStreamName sets the stream name reported to the server.
func WithStreamName(name string) Option {
	return func(s *Sink) {
		s.streamName = name
	}
}

// WithLatency sets the target latency buffer attributes are derived
// from.
func WithLatency(latency time.Duration) Option {
	return func(s *Sink) {
		s.latency = latency
	}
}

// WithAutoFlush sets the interval of forced flushes. Zero disables them.
func WithAutoFlush(interval time.Duration) Option {
	return func(s *Sink) {
		s.flush.interval = interval
	}
}

// WithLogger sets the logger. If this option is not provided, the
// default logger is used.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Sink) {
		s.log = l
	}
}

// WithMetric enables sink counters.
func WithMetric(m *metric.Sink) Option {
	return func(s *Sink) {
		s.metric = m
	}
}

// WithErrorHandler sets a function that receives errors which happen
// while the sink runs in a pipe. Those errors never stop the pipe.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Sink) {
		s.handler = fn
	}
}

// WithClock replaces the time source of the flush timer.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.flush.now = now
	}
}

// New creates a sink and opens the playback stream on the server. If the
// stream cannot be opened, the sink is returned along with the error in
// degraded state: it has no stream and discards all samples, but all its
// methods are safe to call.
func New(server Server, sampleRate int, options ...Option) (*Sink, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSampleRate, sampleRate)
	}
	s := Sink{
		server:     server,
		appName:    DefaultAppName,
		streamName: DefaultStreamName,
		latency:    DefaultLatency,
		flush: flushTimer{
			interval: DefaultAutoFlush,
			now:      time.Now,
		},
	}
	for _, option := range options {
		option(&s)
	}
	s.config = NewStreamConfig(sampleRate, s.latency)
	s.config.AppName = s.appName
	s.config.StreamName = s.streamName
	if s.log == nil {
		s.log = log.GetLogger().WithFields(logrus.Fields{
			"app":    s.appName,
			"stream": s.streamName,
		})
	}
	s.flush.reset()
	if err := s.open(s.device); err != nil {
		return &s, err
	}
	return &s, nil
}

// Config returns the stream config of the sink.
func (s *Sink) Config() StreamConfig {
	return s.config
}

// Device returns the name of the target device.
func (s *Sink) Device() string {
	return s.device
}

// Opened returns true if sink has an open stream.
func (s *Sink) Opened() bool {
	return s.stream != nil
}

// Start resets the flush timer.
func (s *Sink) Start() error {
	s.flush.reset()
	return nil
}

// Stop does nothing, the stream stays open until Close or SelectDevice.
func (s *Sink) Stop() error {
	return nil
}

// SelectDevice closes the current stream and opens a new one on provided
// device with the same config. If the new stream cannot be opened, the
// sink is left without stream and the error is returned.
func (s *Sink) SelectDevice(device string) error {
	if s.closed {
		return ErrClosed
	}
	s.release()
	if err := s.open(device); err != nil {
		return err
	}
	s.log.WithField("device", deviceName(device)).Info("device selected")
	return nil
}

// Process writes samples to the stream. It blocks until the server
// accepts all samples. The number of samples is always returned, even if
// the write failed.
func (s *Sink) Process(samples []float32) (int, error) {
	n := len(samples)
	if s.flush.due() {
		s.flushStream()
	}
	if s.stream == nil {
		if s.closed {
			return n, ErrClosed
		}
		return n, ErrNoStream
	}
	if n == 0 {
		return 0, nil
	}

	started := time.Now()
	err := s.stream.Write(samples)
	s.metric.Write(s.config.SampleRate, n, time.Since(started), err)
	if err != nil {
		s.log.WithError(err).Error("write failed")
		return n, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return n, nil
}

// Close releases the stream. Closed sink cannot be reopened.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

func (s *Sink) open(device string) error {
	s.device = device
	stream, err := s.server.Open(device, s.config)
	s.metric.Open(err)
	if err != nil {
		s.log.WithError(err).WithField("device", deviceName(device)).Error("open failed")
		return fmt.Errorf("%w on device %q: %w", ErrOpen, device, err)
	}
	s.stream = stream
	s.log.WithFields(logrus.Fields{
		"device":     deviceName(device),
		"sampleRate": s.config.SampleRate,
		"latency":    s.config.TargetLatency,
	}).Debug("stream opened")
	return nil
}

// release closes the current stream if any. Errors are only logged,
// since the stream is discarded anyway.
func (s *Sink) release() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.log.WithError(err).Warn("close failed")
	}
	s.stream = nil
}

func (s *Sink) flushStream() {
	if s.stream == nil {
		return
	}
	s.log.Debug("flushing stream")
	if err := s.stream.Flush(); err != nil {
		s.log.WithError(err).Warn("flush failed")
		return
	}
	s.metric.Flush()
}

// report passes the error to the handler, if provided.
func (s *Sink) report(err error) {
	if errors.Is(err, ErrNoStream) {
		s.log.Debug("samples discarded: no open stream")
	}
	if s.handler != nil {
		s.handler(err)
	}
}

func deviceName(device string) string {
	if device == "" {
		return "default"
	}
	return device
}
