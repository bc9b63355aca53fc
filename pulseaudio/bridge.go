package pulseaudio

import (
	"errors"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
)

var (
	// ErrClosed is returned when closed stream is written.
	ErrClosed = errors.New("stream is closed")
	// ErrConnectionLost is returned when server stopped the playback.
	ErrConnectionLost = errors.New("connection lost")
)

// bridge connects blocking writes with the pull-based reader of pulse
// client. Written buffers are queued and the reader drains them. The
// queue is bounded, so writes block while it's full.
type bridge struct {
	queue  chan []float32
	closed chan struct{}
	once   sync.Once
	poll   time.Duration
	check  func() error

	m       sync.Mutex
	pending []float32 // the rest of partially read buffer
}

// newBridge returns bridge with provided queue depth. Blocked writes call
// check every poll interval and fail with its error, closing the bridge.
// Nil check is never called.
func newBridge(depth int, poll time.Duration, check func() error) *bridge {
	if depth < 1 {
		depth = 1
	}
	return &bridge{
		queue:  make(chan []float32, depth),
		closed: make(chan struct{}),
		poll:   poll,
		check:  check,
	}
}

// write copies samples into the queue. It blocks until there is space
// in the queue, bridge is closed or check fails.
func (b *bridge) write(samples []float32) error {
	select {
	case <-b.closed:
		return ErrClosed
	default:
	}
	buf := make([]float32, len(samples))
	copy(buf, samples)
	select {
	case b.queue <- buf:
		return nil
	default:
	}

	var tick <-chan time.Time
	if b.check != nil && b.poll > 0 {
		ticker := time.NewTicker(b.poll)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case b.queue <- buf:
			return nil
		case <-b.closed:
			return ErrClosed
		case <-tick:
			if err := b.check(); err != nil {
				b.close()
				return err
			}
		}
	}
}

// read fills out with queued samples. Missing samples are zeroed, so the
// server never starves. After close, pulse.EndOfData is returned.
func (b *bridge) read(out []float32) (int, error) {
	b.m.Lock()
	defer b.m.Unlock()
	select {
	case <-b.closed:
		return 0, pulse.EndOfData
	default:
	}
	n := 0
	for n < len(out) {
		if len(b.pending) == 0 {
			select {
			case b.pending = <-b.queue:
			default:
				// underrun
				for i := n; i < len(out); i++ {
					out[i] = 0
				}
				return len(out), nil
			}
		}
		c := copy(out[n:], b.pending)
		b.pending = b.pending[c:]
		n += c
	}
	return n, nil
}

// drop discards all queued samples.
func (b *bridge) drop() {
	b.m.Lock()
	defer b.m.Unlock()
	b.pending = nil
	for {
		select {
		case <-b.queue:
		default:
			return
		}
	}
}

// close releases blocked writers.
func (b *bridge) close() {
	b.once.Do(func() {
		close(b.closed)
	})
}
