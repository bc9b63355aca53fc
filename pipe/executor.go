package pipe

import (
	"context"
	"fmt"
	"io"

	"pipelined.dev/playback/mutable"
)

type (
	// message is a main structure for pipe transport.
	message struct {
		signal    [][]float64
		mutations mutable.Mutations
	}

	// executor executes a single DSP component.
	executor interface {
		startHook(context.Context) error
		execute(context.Context) error
		flushHook(context.Context) error
		// done is called when component stops its execution.
		done()
	}

	sourceExecutor struct {
		Source
		bufferSize int
		mutations  <-chan mutable.Mutations
		out        chan<- message
	}

	processorExecutor struct {
		Processor
		bufferSize int
		in         <-chan message
		out        chan<- message
	}

	sinkExecutor struct {
		Sink
		in <-chan message
	}
)

// start runs executor in its own goroutine. The returned channel is
// closed when the executor is done. Any error cancels the context, so
// the rest of components will be stopped.
func start(ctx context.Context, cancelFn context.CancelFunc, e executor) <-chan error {
	errc := make(chan error, 2)
	go func() {
		defer close(errc)
		defer e.done()
		if err := e.startHook(ctx); err != nil {
			cancelFn()
			errc <- fmt.Errorf("error starting component: %w", err)
			return
		}
		var err error
		for err == nil {
			err = e.execute(ctx)
		}
		if err != io.EOF {
			cancelFn()
			errc <- fmt.Errorf("error running component: %w", err)
		}
		if err := e.flushHook(ctx); err != nil {
			cancelFn()
			errc <- fmt.Errorf("error flushing component: %w", err)
		}
	}()
	return errc
}

func (e *sourceExecutor) startHook(ctx context.Context) error {
	return callHook(ctx, e.StartFunc)
}

func (e *sourceExecutor) flushHook(ctx context.Context) error {
	return callHook(ctx, e.FlushFunc)
}

func (e *sourceExecutor) done() {
	close(e.out)
}

// execute does a single iteration of source component. Mutations are
// applied before the buffer is filled and then sent along with it.
// io.EOF is returned if context is done.
func (e *sourceExecutor) execute(ctx context.Context) error {
	var ms mutable.Mutations
	select {
	case ms = <-e.mutations:
		if err := ms.ApplyTo(e.Context); err != nil {
			return err
		}
	case <-ctx.Done():
		return io.EOF
	default:
	}

	out := allocate(e.Channels, e.bufferSize)
	read, err := e.SourceFunc(out)
	if err == io.EOF && len(ms) > 0 {
		// empty message delivers mutations to the rest of the line.
		read = 0
	} else if err != nil {
		return err
	}
	if read != e.bufferSize {
		for i := range out {
			out[i] = out[i][:read]
		}
	}

	select {
	case e.out <- message{signal: out, mutations: ms}:
		return err
	case <-ctx.Done():
		return io.EOF
	}
}

func (e *processorExecutor) startHook(ctx context.Context) error {
	return callHook(ctx, e.StartFunc)
}

func (e *processorExecutor) flushHook(ctx context.Context) error {
	return callHook(ctx, e.FlushFunc)
}

func (e *processorExecutor) done() {
	close(e.out)
}

// execute does a single iteration of processor component. io.EOF is
// returned if context is done or input is closed.
func (e *processorExecutor) execute(ctx context.Context) error {
	m, err := receive(ctx, e.in)
	if err != nil {
		return err
	}
	if err := m.mutations.ApplyTo(e.Context); err != nil {
		return err
	}

	out := allocate(e.Channels, len(m.signal[0]))
	if len(m.signal[0]) > 0 {
		if err := e.ProcessFunc(m.signal, out); err != nil {
			return err
		}
	}

	select {
	case e.out <- message{signal: out, mutations: m.mutations}:
		return nil
	case <-ctx.Done():
		return io.EOF
	}
}

func (e *sinkExecutor) startHook(ctx context.Context) error {
	return callHook(ctx, e.StartFunc)
}

func (e *sinkExecutor) flushHook(ctx context.Context) error {
	return callHook(ctx, e.FlushFunc)
}

func (e *sinkExecutor) done() {}

// execute does a single iteration of sink component. io.EOF is returned
// if context is done or input is closed.
func (e *sinkExecutor) execute(ctx context.Context) error {
	m, err := receive(ctx, e.in)
	if err != nil {
		return err
	}
	if err := m.mutations.ApplyTo(e.Context); err != nil {
		return err
	}
	if len(m.signal[0]) == 0 {
		return nil
	}
	return e.SinkFunc(m.signal)
}

func receive(ctx context.Context, in <-chan message) (message, error) {
	select {
	case m, ok := <-in:
		if !ok {
			return message{}, io.EOF
		}
		return m, nil
	case <-ctx.Done():
		return message{}, io.EOF
	}
}

func callHook(ctx context.Context, hook func(context.Context) error) error {
	if hook == nil {
		return nil
	}
	return hook(ctx)
}
