// Package portaudio implements playback server with PortAudio blocking
// I/O.
package portaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/playback"
)

// ErrNoDevice is returned when output device is not found.
var ErrNoDevice = errors.New("output device not found")

type (
	// Server opens playback streams with PortAudio. PortAudio is
	// initialized with the first opened stream and terminated when the
	// last one is closed.
	Server struct {
		m       sync.Mutex
		streams int
	}

	// stream fills the buffer bound to the device and writes it once it
	// is full. Samples are never padded in the middle of the stream.
	stream struct {
		device  device
		release func() error
		buf     []float32
		fill    int
	}

	// device is a blocking stream that writes the whole bound buffer.
	device interface {
		Write() error
		Start() error
		Stop() error
		Abort() error
		Close() error
	}
)

// NewServer returns new PortAudio server.
func NewServer() *Server {
	return &Server{}
}

// Open starts blocking output stream on the named device. Empty device
// name selects the default output device.
func (s *Server) Open(device string, config playback.StreamConfig) (playback.Stream, error) {
	if config.Format != playback.FormatFloat32LE || config.Channels != 1 {
		return nil, fmt.Errorf("unsupported stream: %v format with %d channels", config.Format, config.Channels)
	}
	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	st, err := s.open(device, config)
	if err != nil {
		s.terminate()
		return nil, err
	}
	return st, nil
}

func (s *Server) open(device string, config playback.StreamConfig) (*stream, error) {
	info, err := outputDevice(device)
	if err != nil {
		return nil, err
	}
	params := portaudio.HighLatencyParameters(nil, info)
	params.Output.Channels = config.Channels
	if config.TargetLatency > 0 {
		params.Output.Latency = config.TargetLatency
	}
	params.SampleRate = float64(config.SampleRate)
	params.FramesPerBuffer = config.BufferFrames()

	buf := make([]float32, params.FramesPerBuffer*config.Channels)
	ps, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := ps.Start(); err != nil {
		ps.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return &stream{
		device:  ps,
		release: s.terminate,
		buf:     buf,
	}, nil
}

func (s *Server) initialize() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.streams == 0 {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
	}
	s.streams++
	return nil
}

func (s *Server) terminate() error {
	s.m.Lock()
	defer s.m.Unlock()
	s.streams--
	if s.streams == 0 {
		return portaudio.Terminate()
	}
	return nil
}

func outputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name == name && d.MaxOutputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
}

// Write copies samples into the stream buffer and writes the buffer each
// time it is full. The rest is kept until the next call.
func (s *stream) Write(samples []float32) error {
	for len(samples) > 0 {
		n := copy(s.buf[s.fill:], samples)
		s.fill += n
		samples = samples[n:]
		if s.fill < len(s.buf) {
			return nil
		}
		s.fill = 0
		if err := s.device.Write(); err != nil {
			return err
		}
	}
	return nil
}

// Flush discards the incomplete buffer and pending buffers of the device
// and restarts it.
func (s *stream) Flush() error {
	s.fill = 0
	if err := s.device.Abort(); err != nil {
		return err
	}
	return s.device.Start()
}

// Close writes the incomplete buffer padded with silence, stops the
// stream and terminates PortAudio if it was the last stream.
func (s *stream) Close() error {
	var errs []error
	if s.fill > 0 {
		clear(s.buf[s.fill:])
		s.fill = 0
		if err := s.device.Write(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.device.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.device.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.release != nil {
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
