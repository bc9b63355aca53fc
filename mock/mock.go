// Package mock provides mocks for pipe components and a simulated audio
// server. It allows to execute integration tests without audio hardware.
package mock

import (
	"context"
	"io"
	"time"

	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/pipe"
)

// Counter counts messages and samples.
type Counter struct {
	Messages int
	Samples  int
}

func (c *Counter) advance(size int) {
	c.Messages++
	c.Samples = c.Samples + size
}

// Hooks allows to mock components hooks. Started is set only if start
// hook succeeded.
type Hooks struct {
	Started      bool
	Flushed      bool
	ErrorOnStart error
	ErrorOnFlush error
}

func (h *Hooks) start(context.Context) error {
	if h.ErrorOnStart != nil {
		return h.ErrorOnStart
	}
	h.Started = true
	return nil
}

func (h *Hooks) flush(context.Context) error {
	h.Flushed = true
	return h.ErrorOnFlush
}

// Source generates constant signal until the limit of samples is
// reached.
type Source struct {
	Mutability  mutable.Context
	Counter     Counter
	Interval    time.Duration
	Limit       int
	Value       float64
	Channels    int
	SampleRate  int
	ErrorOnCall error
	Hooks
}

// Source returns allocator of mocked source.
func (m *Source) Source() pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		m.Mutability = mctx
		return pipe.Source{
			SourceFunc: func(out [][]float64) (int, error) {
				if m.ErrorOnCall != nil {
					return 0, m.ErrorOnCall
				}
				if m.Counter.Samples >= m.Limit {
					return 0, io.EOF
				}
				time.Sleep(m.Interval)

				read := len(out[0])
				if left := m.Limit - m.Counter.Samples; left < read {
					read = left
				}
				for i := range out {
					for j := 0; j < read; j++ {
						out[i][j] = m.Value
					}
				}
				m.Counter.advance(read)
				return read, nil
			},
			StartFunc: m.Hooks.start,
			FlushFunc: m.Hooks.flush,
			SignalProperties: pipe.SignalProperties{
				Channels:   m.Channels,
				SampleRate: m.SampleRate,
			},
		}, nil
	}
}

// ValueMutation returns mutation that changes the value of generated
// signal.
func (m *Source) ValueMutation(v float64) mutable.Mutation {
	return m.Mutability.Mutate(func() error {
		m.Value = v
		return nil
	})
}

// Reset returns mutation that resets the counter of the source.
func (m *Source) Reset() mutable.Mutation {
	return m.Mutability.Mutate(func() error {
		m.Counter = Counter{}
		return nil
	})
}

// Processor copies input signal into output and counts it.
type Processor struct {
	Mutability  mutable.Context
	Counter     Counter
	ErrorOnCall error
	Hooks
}

// Processor returns allocator of mocked processor. Output signal has the
// same properties as input.
func (m *Processor) Processor() pipe.ProcessorAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Processor, error) {
		m.Mutability = mctx
		return pipe.Processor{
			ProcessFunc: func(in, out [][]float64) error {
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				for i := range in {
					copy(out[i], in[i])
				}
				m.Counter.advance(len(in[0]))
				return nil
			},
			StartFunc:        m.Hooks.start,
			FlushFunc:        m.Hooks.flush,
			SignalProperties: input,
		}, nil
	}
}

// Sink accumulates the signal it receives. Values are not thread-safe,
// so they should not be checked while pipe is running.
type Sink struct {
	Mutability  mutable.Context
	Counter     Counter
	Discard     bool
	ErrorOnCall error
	Hooks
	values [][]float64
}

// Sink returns allocator of mocked sink.
func (m *Sink) Sink() pipe.SinkAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
		m.Mutability = mctx
		m.values = make([][]float64, input.Channels)
		return pipe.Sink{
			SinkFunc: func(in [][]float64) error {
				if m.ErrorOnCall != nil {
					return m.ErrorOnCall
				}
				if !m.Discard {
					for i := range in {
						m.values[i] = append(m.values[i], in[i]...)
					}
				}
				m.Counter.advance(len(in[0]))
				return nil
			},
			StartFunc: m.Hooks.start,
			FlushFunc: m.Hooks.flush,
		}, nil
	}
}

// Values returns the signal accumulated by the sink.
func (m *Sink) Values() [][]float64 {
	return m.values
}
