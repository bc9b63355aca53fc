package playback

import (
	"context"
	"fmt"

	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/pipe"
)

// Sink returns allocator of the pipe sink component. Input signal must be
// mono and have the sample rate of the sink. Start and flush hooks of the
// component call Start and Stop. Write errors are reported to the error
// handler and never stop the pipe.
func (s *Sink) Sink() pipe.SinkAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int, input pipe.SignalProperties) (pipe.Sink, error) {
		if input.Channels != 1 {
			return pipe.Sink{}, fmt.Errorf("%w: got %d channels", ErrChannels, input.Channels)
		}
		if input.SampleRate != s.config.SampleRate {
			return pipe.Sink{}, fmt.Errorf("%w: got %d expected %d", ErrSampleRate, input.SampleRate, s.config.SampleRate)
		}
		s.mctx = mctx
		s.buf = make([]float32, bufferSize)
		return pipe.Sink{
			Context: mctx,
			SinkFunc: func(in [][]float64) error {
				if len(in[0]) > cap(s.buf) {
					s.buf = make([]float32, len(in[0]))
				}
				buf := s.buf[:len(in[0])]
				for i, v := range in[0] {
					buf[i] = float32(v)
				}
				if _, err := s.Process(buf); err != nil {
					s.report(err)
				}
				return nil
			},
			StartFunc: func(context.Context) error {
				return s.Start()
			},
			FlushFunc: func(context.Context) error {
				return s.Stop()
			},
		}, nil
	}
}

// DeviceMutation returns mutation that selects provided device while the
// sink runs in a pipe. Failure to open the device is reported to the
// error handler and leaves the sink in degraded state. The sink must be
// allocated in a pipe, otherwise the call panics.
func (s *Sink) DeviceMutation(device string) mutable.Mutation {
	return s.mctx.Mutate(func() error {
		if err := s.SelectDevice(device); err != nil {
			s.report(err)
		}
		return nil
	})
}
