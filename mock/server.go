package mock

import (
	"errors"
	"sync"

	"pipelined.dev/playback"
)

var (
	// ErrNoDevice is returned when unknown device is opened.
	ErrNoDevice = errors.New("no such device")
	// ErrClosed is returned when closed stream is used.
	ErrClosed = errors.New("stream is closed")
)

// Server simulates an audio server. Devices listed in Missing cannot be
// opened. Every opened stream is recorded.
type Server struct {
	m            sync.Mutex
	Missing      []string
	ErrorOnWrite error
	ErrorOnFlush error
	// Block is received before every write if not nil. It allows to
	// simulate a full server buffer.
	Block   chan struct{}
	streams []*Stream
}

// Open implements playback.Server.
func (s *Server) Open(device string, config playback.StreamConfig) (playback.Stream, error) {
	s.m.Lock()
	defer s.m.Unlock()
	for _, d := range s.Missing {
		if d == device {
			return nil, ErrNoDevice
		}
	}
	stream := &Stream{
		server: s,
		Device: device,
		Config: config,
	}
	s.streams = append(s.streams, stream)
	return stream, nil
}

// Streams returns all streams ever opened on the server.
func (s *Server) Streams() []*Stream {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]*Stream(nil), s.streams...)
}

// Opened returns streams that are not closed.
func (s *Server) Opened() []*Stream {
	s.m.Lock()
	defer s.m.Unlock()
	var opened []*Stream
	for _, stream := range s.streams {
		if !stream.closed {
			opened = append(opened, stream)
		}
	}
	return opened
}

// Stream is a simulated playback stream.
type Stream struct {
	server  *Server
	Device  string
	Config  playback.StreamConfig
	samples []float32
	writes  int
	flushes int
	closed  bool
}

// Write implements playback.Stream.
func (s *Stream) Write(samples []float32) error {
	if block := s.server.Block; block != nil {
		<-block
	}
	s.server.m.Lock()
	defer s.server.m.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.server.ErrorOnWrite != nil {
		return s.server.ErrorOnWrite
	}
	s.samples = append(s.samples, samples...)
	s.writes++
	return nil
}

// Flush implements playback.Stream.
func (s *Stream) Flush() error {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.flushes++
	return s.server.ErrorOnFlush
}

// Close implements playback.Stream.
func (s *Stream) Close() error {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return nil
}

// Samples returns all written samples.
func (s *Stream) Samples() []float32 {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	return append([]float32(nil), s.samples...)
}

// Writes returns number of successful writes.
func (s *Stream) Writes() int {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	return s.writes
}

// Flushes returns number of requested flushes.
func (s *Stream) Flushes() int {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	return s.flushes
}

// Closed returns true if stream is closed.
func (s *Stream) Closed() bool {
	s.server.m.Lock()
	defer s.server.m.Unlock()
	return s.closed
}
