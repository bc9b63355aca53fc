package pipe

import (
	"context"
	"sync"

	"pipelined.dev/playback/mutable"
)

// Runner executes the pipe asynchronously.
type Runner struct {
	ctx      context.Context
	cancelFn context.CancelFunc
	contexts map[mutable.Context]chan mutable.Mutations
	merger   *errorMerger
	once     sync.Once
	err      error
}

// Run starts the pipe execution. Initializers are applied by components
// before the first buffer is processed.
func Run(ctx context.Context, p *Pipe, initializers ...mutable.Mutation) *Runner {
	ctx, cancelFn := context.WithCancel(ctx)
	r := Runner{
		ctx:      ctx,
		cancelFn: cancelFn,
		contexts: p.contexts,
		merger:   newErrorMerger(),
	}
	// mutations left by the previous run are delivered before
	// initializers. Channel has capacity of one and nothing else sends
	// before start, so this never blocks.
	for c, ms := range r.group(initializers) {
		select {
		case pending := <-c:
			ms = pending.Merge(ms)
		default:
		}
		c <- ms
	}
	for _, l := range p.lines {
		r.merger.add(l.start(ctx, cancelFn, p.bufferSize)...)
	}
	go r.merger.wait(cancelFn)
	return &r
}

func (l *line) start(ctx context.Context, cancelFn context.CancelFunc, bufferSize int) []<-chan error {
	errcList := make([]<-chan error, 0, 2+len(l.processors))
	out := make(chan message)
	errcList = append(errcList, start(ctx, cancelFn, &sourceExecutor{
		Source:     l.source,
		bufferSize: bufferSize,
		mutations:  l.mutations,
		out:        out,
	}))
	in := out
	for i := range l.processors {
		out = make(chan message)
		errcList = append(errcList, start(ctx, cancelFn, &processorExecutor{
			Processor:  l.processors[i],
			bufferSize: bufferSize,
			in:         in,
			out:        out,
		}))
		in = out
	}
	errcList = append(errcList, start(ctx, cancelFn, &sinkExecutor{
		Sink: l.sink,
		in:   in,
	}))
	return errcList
}

// Push new mutations into the running pipe. Mutations are delivered to
// the components along with the next buffer of their line. Push blocks
// until the line accepts mutations or the pipe is done. Mutations pushed
// after the pipe is done are discarded. Pushing mutation of unknown
// context panics.
func (r *Runner) Push(mutations ...mutable.Mutation) {
	for c, ms := range r.group(mutations) {
		if r.ctx.Err() != nil {
			return
		}
		select {
		case c <- ms:
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) group(mutations []mutable.Mutation) map[chan mutable.Mutations]mutable.Mutations {
	grouped := make(map[chan mutable.Mutations]mutable.Mutations)
	for _, m := range mutations {
		c, ok := r.contexts[m.Context]
		if !ok {
			panic("unknown mutable context")
		}
		grouped[c] = grouped[c].Put(m)
	}
	return grouped
}

// Interrupt stops the pipe execution. Flush hooks of all components are
// still called.
func (r *Runner) Interrupt() {
	r.cancelFn()
}

// Wait for all components to finish. The first error is returned, the
// rest are discarded.
func (r *Runner) Wait() error {
	r.once.Do(func() {
		for err := range r.merger.errorChan {
			if r.err == nil {
				r.err = err
			}
		}
	})
	return r.err
}
