// Package pulseaudio implements playback server with PulseAudio.
package pulseaudio

import (
	"fmt"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/sirupsen/logrus"

	"pipelined.dev/playback"
	"pipelined.dev/playback/log"
)

const (
	// DefaultQueueDepth is the number of written buffers queued on the
	// client side.
	DefaultQueueDepth = 4

	// pollInterval is how often blocked writes check the connection.
	pollInterval = 100 * time.Millisecond
)

type (
	// Server opens playback streams on PulseAudio server. Every stream
	// uses its own client connection named with the application name of
	// the stream.
	Server struct {
		options []pulse.ClientOption
		depth   int
		log     logrus.FieldLogger
	}

	// Option configures the server.
	Option func(*Server)

	stream struct {
		client   *pulse.Client
		playback *pulse.PlaybackStream
		*bridge
	}
)

// WithServerString sets the address of PulseAudio server. If this option
// is not provided, the default server is used.
func WithServerString(address string) Option {
	return func(s *Server) {
		s.options = append(s.options, pulse.ClientServerString(address))
	}
}

// WithQueueDepth sets the number of written buffers queued on the client
// side.
func WithQueueDepth(depth int) Option {
	return func(s *Server) {
		s.depth = depth
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer returns new PulseAudio server.
func NewServer(options ...Option) *Server {
	s := Server{
		depth: DefaultQueueDepth,
	}
	for _, option := range options {
		option(&s)
	}
	if s.log == nil {
		s.log = log.GetLogger()
	}
	return &s
}

// Open connects to the server and starts playback stream on provided
// sink. Empty device name selects the default sink.
func (s *Server) Open(device string, config playback.StreamConfig) (playback.Stream, error) {
	if config.Format != playback.FormatFloat32LE || config.Channels != 1 {
		return nil, fmt.Errorf("unsupported stream: %v format with %d channels", config.Format, config.Channels)
	}
	options := append([]pulse.ClientOption{pulse.ClientApplicationName(config.AppName)}, s.options...)
	client, err := pulse.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	playbackOptions := []pulse.PlaybackOption{
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(config.SampleRate),
		pulse.PlaybackMediaName(config.StreamName),
		pulse.PlaybackBufferSize(config.BufferFrames()),
		pulse.PlaybackRawOption(func(req *proto.CreatePlaybackStream) {
			setBufferAttr(req, config.Buffer)
		}),
	}
	if device != "" {
		sink, err := client.SinkByID(device)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("sink %q: %w", device, err)
		}
		playbackOptions = append(playbackOptions, pulse.PlaybackSink(sink))
	}

	var p *pulse.PlaybackStream
	b := newBridge(s.depth, pollInterval, func() error {
		return lost(p)
	})
	p, err = client.NewPlayback(pulse.Float32Reader(b.read), playbackOptions...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("new playback: %w", err)
	}
	p.Start()
	s.log.WithFields(logrus.Fields{
		"device":     device,
		"sampleRate": p.SampleRate(),
		"bufferSize": p.BufferSize(),
	}).Debug("pulseaudio playback started")
	return &stream{
		client:   client,
		playback: p,
		bridge:   b,
	}, nil
}

// Write blocks until samples are queued. If the connection is lost, the
// stream is closed and the error is returned.
func (s *stream) Write(samples []float32) error {
	if err := lost(s.playback); err != nil {
		s.close()
		return err
	}
	return s.write(samples)
}

// Flush drops the queued samples and flushes the server buffer.
func (s *stream) Flush() error {
	s.drop()
	return s.client.RawRequest(&proto.FlushPlaybackStream{
		StreamIndex: s.playback.StreamIndex(),
	}, nil)
}

// Close stops playback and closes the connection.
func (s *stream) Close() error {
	s.close()
	s.playback.Close()
	s.client.Close()
	return nil
}

// setBufferAttr passes derived buffer attributes to the server as is.
func setBufferAttr(req *proto.CreatePlaybackStream, attr playback.BufferAttr) {
	req.BufferMaxLength = attr.MaxLength
	req.BufferTargetLength = attr.TargetLength
	req.BufferPrebufferLength = attr.Prebuffer
	req.BufferMinimumRequest = attr.MinRequest
}

// lost returns an error if playback was stopped by the server.
func lost(p *pulse.PlaybackStream) error {
	if p == nil {
		return nil
	}
	if err := p.Error(); err != nil {
		return err
	}
	if p.Closed() {
		return ErrConnectionLost
	}
	return nil
}
