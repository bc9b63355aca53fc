package playback_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/playback"
	"pipelined.dev/playback/log"
	"pipelined.dev/playback/metric"
	"pipelined.dev/playback/mock"
)

const sampleRate = 48000

// clock is a manually advanced time source.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newSink(t *testing.T, server *mock.Server, options ...playback.Option) *playback.Sink {
	t.Helper()
	options = append([]playback.Option{playback.WithLogger(log.Silent())}, options...)
	s, err := playback.New(server, sampleRate, options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestNew(t *testing.T) {
	server := &mock.Server{}
	s := newSink(t, server,
		playback.WithDevice("usb"),
		playback.WithAppName("receiver"),
		playback.WithStreamName("demod"),
	)

	assert.True(t, s.Opened())
	assert.Equal(t, "usb", s.Device())
	require.Len(t, server.Opened(), 1)
	stream := server.Opened()[0]
	assert.Equal(t, "usb", stream.Device)
	assert.Equal(t, "receiver", stream.Config.AppName)
	assert.Equal(t, "demod", stream.Config.StreamName)
	assert.Equal(t, playback.FormatFloat32LE, stream.Config.Format)
	assert.Equal(t, 1, stream.Config.Channels)
	assert.Equal(t, sampleRate, stream.Config.SampleRate)
	assert.Equal(t, playback.DefaultLatency, stream.Config.TargetLatency)
	assert.Equal(t, uint32(1920), stream.Config.Buffer.TargetLength)
}

func TestNewInvalidSampleRate(t *testing.T) {
	s, err := playback.New(&mock.Server{}, 0)
	assert.ErrorIs(t, err, playback.ErrSampleRate)
	assert.Nil(t, s)
}

func TestDegraded(t *testing.T) {
	server := &mock.Server{Missing: []string{"missing"}}
	s, err := playback.New(server, sampleRate,
		playback.WithDevice("missing"),
		playback.WithLogger(log.Silent()),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, playback.ErrOpen)
	assert.ErrorIs(t, err, mock.ErrNoDevice)
	require.NotNil(t, s)
	assert.False(t, s.Opened())
	assert.Empty(t, server.Opened())

	assert.NoError(t, s.Start())
	n, err := s.Process(make([]float32, 512))
	assert.Equal(t, 512, n)
	assert.ErrorIs(t, err, playback.ErrNoStream)
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Close())

	n, err = s.Process(make([]float32, 16))
	assert.Equal(t, 16, n)
	assert.ErrorIs(t, err, playback.ErrClosed)
	assert.ErrorIs(t, s.SelectDevice(""), playback.ErrClosed)
}

func TestProcess(t *testing.T) {
	errWrite := errors.New("broken pipe")
	tests := []struct {
		description string
		errorOnCall error
		buffers     [][]float32
		expected    []float32
	}{
		{
			description: "ok",
			buffers:     [][]float32{{0.1, 0.2}, {0.3}},
			expected:    []float32{0.1, 0.2, 0.3},
		},
		{
			description: "empty buffer",
			buffers:     [][]float32{{}, {0.5}},
			expected:    []float32{0.5},
		},
		{
			description: "write error",
			errorOnCall: errWrite,
			buffers:     [][]float32{{0.1, 0.2}, {0.3}},
		},
	}
	for _, test := range tests {
		server := &mock.Server{ErrorOnWrite: test.errorOnCall}
		// expvar is global, so names must be unique across repeated runs
		name := test.description + " " + xid.New().String()
		m := metric.Get(name)
		s := newSink(t, server, playback.WithMetric(m))
		require.NoError(t, s.Start(), test.description)
		for _, b := range test.buffers {
			n, err := s.Process(b)
			assert.Equal(t, len(b), n, test.description)
			if test.errorOnCall != nil && len(b) > 0 {
				assert.ErrorIs(t, err, playback.ErrWrite, test.description)
				assert.ErrorIs(t, err, test.errorOnCall, test.description)
			} else {
				assert.NoError(t, err, test.description)
			}
		}
		assert.NoError(t, s.Stop(), test.description)
		assert.Equal(t, test.expected, server.Streams()[0].Samples(), test.description)
		if test.errorOnCall != nil {
			assert.Equal(t, "2", metric.Values(name)[metric.WriteErrorCounter], test.description)
		}
	}
}

func TestProcessBlocks(t *testing.T) {
	server := &mock.Server{}
	s := newSink(t, server)
	block := make(chan struct{})
	server.Block = block

	done := make(chan int)
	samples := make([]float32, 480)
	go func() {
		n, err := s.Process(samples)
		assert.NoError(t, err)
		done <- n
	}()
	select {
	case <-done:
		t.Fatal("process returned before server accepted samples")
	case <-time.After(50 * time.Millisecond):
	}
	close(block)
	assert.Equal(t, len(samples), <-done)
	assert.Len(t, server.Streams()[0].Samples(), len(samples))
}

func TestAutoFlush(t *testing.T) {
	tests := []struct {
		description string
		interval    time.Duration
		advances    []time.Duration
		expected    []int
	}{
		{
			description: "disabled",
			interval:    0,
			advances:    []time.Duration{0, time.Hour, 24 * time.Hour},
			expected:    []int{0, 0, 0},
		},
		{
			description: "not elapsed after start",
			interval:    time.Minute,
			advances:    []time.Duration{0, 30 * time.Second, 30 * time.Second},
			expected:    []int{0, 0, 0},
		},
		{
			description: "elapsed",
			interval:    time.Minute,
			advances:    []time.Duration{time.Minute + time.Millisecond, time.Second, time.Minute},
			expected:    []int{1, 1, 2},
		},
		{
			description: "default interval",
			interval:    playback.DefaultAutoFlush,
			advances:    []time.Duration{299 * time.Second, 2 * time.Second, time.Second},
			expected:    []int{0, 1, 1},
		},
	}
	for _, test := range tests {
		c := &clock{t: time.Unix(1000, 0)}
		server := &mock.Server{}
		s := newSink(t, server,
			playback.WithClock(c.now),
			playback.WithAutoFlush(test.interval),
		)
		// time passed before start is ignored
		c.advance(time.Hour)
		require.NoError(t, s.Start())
		stream := server.Opened()[0]
		for i, d := range test.advances {
			c.advance(d)
			_, err := s.Process([]float32{0})
			require.NoError(t, err)
			assert.Equal(t, test.expected[i], stream.Flushes(), "%s: call %d", test.description, i)
		}
	}
}

func TestAutoFlushError(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	server := &mock.Server{ErrorOnFlush: errors.New("flush failed")}
	s := newSink(t, server,
		playback.WithClock(c.now),
		playback.WithAutoFlush(time.Second),
	)
	require.NoError(t, s.Start())
	c.advance(2 * time.Second)
	n, err := s.Process([]float32{0, 0})
	assert.Equal(t, 2, n)
	assert.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, server.Opened()[0].Samples())
}

func TestSelectDevice(t *testing.T) {
	server := &mock.Server{Missing: []string{"missing"}}
	c := &clock{t: time.Unix(0, 0)}
	s := newSink(t, server,
		playback.WithClock(c.now),
		playback.WithAutoFlush(time.Minute),
		playback.WithLatency(20*time.Millisecond),
	)
	require.NoError(t, s.Start())
	config := s.Config()

	// switch to existing device
	c.advance(40 * time.Second)
	require.NoError(t, s.SelectDevice("hdmi"))
	assert.True(t, s.Opened())
	assert.Equal(t, "hdmi", s.Device())
	opened := server.Opened()
	require.Len(t, opened, 1)
	assert.Equal(t, "hdmi", opened[0].Device)
	assert.Equal(t, config, opened[0].Config)
	assert.True(t, server.Streams()[0].Closed())

	// flush timer is not reset by device switch
	c.advance(40 * time.Second)
	_, err := s.Process([]float32{1})
	require.NoError(t, err)
	assert.Equal(t, 1, opened[0].Flushes())

	// switch to missing device
	err = s.SelectDevice("missing")
	assert.ErrorIs(t, err, playback.ErrOpen)
	assert.False(t, s.Opened())
	assert.Empty(t, server.Opened())
	_, err = s.Process([]float32{1})
	assert.ErrorIs(t, err, playback.ErrNoStream)

	// recover with default device
	require.NoError(t, s.SelectDevice(""))
	require.Len(t, server.Opened(), 1)
	assert.Equal(t, "", server.Opened()[0].Device)
	assert.Len(t, server.Streams(), 3)
}

func TestClose(t *testing.T) {
	server := &mock.Server{}
	s, err := playback.New(server, sampleRate, playback.WithLogger(log.Silent()))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.False(t, s.Opened())
	assert.Empty(t, server.Opened())
	// second close is noop
	assert.NoError(t, s.Close())
}
