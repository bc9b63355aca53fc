package pipe

import (
	"context"
	"fmt"

	"pipelined.dev/playback/mutable"
)

type (
	// Line defines sequence of DSP components allocators. It has a
	// single source, zero or many processors and single sink.
	Line struct {
		Source     SourceAllocatorFunc
		Processors []ProcessorAllocatorFunc
		Sink       SinkAllocatorFunc
	}

	// SourceAllocatorFunc returns source for provided buffer size. It is
	// responsible for pre-allocation of all necessary buffers and
	// structures.
	SourceAllocatorFunc func(mctx mutable.Context, bufferSize int) (Source, error)

	// ProcessorAllocatorFunc returns processor for provided buffer size.
	// It is responsible for pre-allocation of all necessary buffers and
	// structures. Along with the processor, output signal properties are
	// returned.
	ProcessorAllocatorFunc func(mctx mutable.Context, bufferSize int, input SignalProperties) (Processor, error)

	// SinkAllocatorFunc returns sink for provided buffer size. It is
	// responsible for pre-allocation of all necessary buffers and
	// structures.
	SinkAllocatorFunc func(mctx mutable.Context, bufferSize int, input SignalProperties) (Sink, error)

	// SignalProperties contains information about input/output signal.
	SignalProperties struct {
		SampleRate int
		Channels   int
	}

	// Source is a source of signal data. Optionally, mutability can be
	// provided to handle mutations and start/flush hooks to handle
	// resource initialisation and cleanup.
	Source struct {
		mutable.Context
		SourceFunc
		StartFunc
		FlushFunc
		SignalProperties
	}

	// Processor is a mutator of signal data. Optionally, mutability can
	// be provided to handle mutations and start/flush hooks to handle
	// resource initialisation and cleanup.
	Processor struct {
		mutable.Context
		ProcessFunc
		StartFunc
		FlushFunc
		SignalProperties
	}

	// Sink is a destination of signal data. Optionally, mutability can be
	// provided to handle mutations and start/flush hooks to handle
	// resource initialisation and cleanup.
	Sink struct {
		mutable.Context
		SinkFunc
		StartFunc
		FlushFunc
	}

	// SourceFunc fills the non-interleaved out buffer and returns the
	// number of samples per channel written. It returns io.EOF when
	// there is no more data. Short reads are allowed.
	SourceFunc func(out [][]float64) (int, error)

	// ProcessFunc transforms in signal into out signal.
	ProcessFunc func(in, out [][]float64) error

	// SinkFunc consumes the signal.
	SinkFunc func(in [][]float64) error

	// StartFunc is a closure that triggers pipe component start hook.
	StartFunc func(ctx context.Context) error

	// FlushFunc is a closure that triggers pipe component flush hook.
	FlushFunc func(ctx context.Context) error
)

type (
	// Pipe is a set of allocated lines ready to run.
	Pipe struct {
		bufferSize int
		lines      []*line
		// contexts maps every component context to the mutations
		// channel of its line.
		contexts map[mutable.Context]chan mutable.Mutations
	}

	// line holds allocated components of a single Line.
	line struct {
		mutations  chan mutable.Mutations
		source     Source
		processors []Processor
		sink       Sink
	}
)

// Processors is a helper function to use in line constructors.
func Processors(processors ...ProcessorAllocatorFunc) []ProcessorAllocatorFunc {
	return processors
}

// New executes all allocators of provided lines and returns the pipe
// ready to run. If any allocator fails, the error is returned.
func New(bufferSize int, lines ...Line) (*Pipe, error) {
	if bufferSize <= 0 {
		return nil, fmt.Errorf("invalid buffer size: %d", bufferSize)
	}
	p := Pipe{
		bufferSize: bufferSize,
		lines:      make([]*line, 0, len(lines)),
		contexts:   make(map[mutable.Context]chan mutable.Mutations),
	}
	for i := range lines {
		l, err := lines[i].allocate(bufferSize)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		p.contexts[l.source.Context] = l.mutations
		for j := range l.processors {
			p.contexts[l.processors[j].Context] = l.mutations
		}
		p.contexts[l.sink.Context] = l.mutations
		p.lines = append(p.lines, l)
	}
	return &p, nil
}

func (l Line) allocate(bufferSize int) (*line, error) {
	if l.Source == nil || l.Sink == nil {
		return nil, fmt.Errorf("source and sink are required")
	}
	source, err := l.Source.allocate(mutable.Mutable(), bufferSize)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	props := source.SignalProperties
	processors := make([]Processor, 0, len(l.Processors))
	for i := range l.Processors {
		processor, err := l.Processors[i].allocate(mutable.Mutable(), bufferSize, props)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
		props = processor.SignalProperties
		processors = append(processors, processor)
	}

	sink, err := l.Sink.allocate(mutable.Mutable(), bufferSize, props)
	if err != nil {
		return nil, fmt.Errorf("sink: %w", err)
	}

	return &line{
		mutations:  make(chan mutable.Mutations, 1),
		source:     source,
		processors: processors,
		sink:       sink,
	}, nil
}

func (fn SourceAllocatorFunc) allocate(mctx mutable.Context, bufferSize int) (Source, error) {
	c, err := fn(mctx, bufferSize)
	if err != nil {
		return Source{}, err
	}
	if c.Channels <= 0 {
		return Source{}, fmt.Errorf("invalid number of channels: %d", c.Channels)
	}
	c.Context = mctx
	return c, nil
}

func (fn ProcessorAllocatorFunc) allocate(mctx mutable.Context, bufferSize int, input SignalProperties) (Processor, error) {
	c, err := fn(mctx, bufferSize, input)
	if err != nil {
		return Processor{}, err
	}
	if c.Channels <= 0 {
		return Processor{}, fmt.Errorf("invalid number of channels: %d", c.Channels)
	}
	c.Context = mctx
	return c, nil
}

func (fn SinkAllocatorFunc) allocate(mctx mutable.Context, bufferSize int, input SignalProperties) (Sink, error) {
	c, err := fn(mctx, bufferSize, input)
	if err != nil {
		return Sink{}, err
	}
	c.Context = mctx
	return c, nil
}

// allocate returns new non-interleaved buffer.
func allocate(channels, size int) [][]float64 {
	b := make([][]float64, channels)
	for i := range b {
		b[i] = make([]float64, size)
	}
	return b
}
