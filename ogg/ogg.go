// Package ogg provides a pipe source that decodes Ogg Vorbis stream and
// emits a single channel of it.
package ogg

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/pipe"
)

// ErrChannel is returned when selected channel is not present.
var ErrChannel = errors.New("channel out of range")

// Source returns allocator of ogg vorbis source. The channel with
// provided index is emitted as mono signal.
func Source(r io.Reader, channel int) pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		d, err := oggvorbis.NewReader(r)
		if err != nil {
			return pipe.Source{}, fmt.Errorf("decode ogg: %w", err)
		}
		channels := d.Channels()
		if channel < 0 || channel >= channels {
			return pipe.Source{}, fmt.Errorf("%w: %d of %d", ErrChannel, channel, channels)
		}
		buf := make([]float32, bufferSize*channels)
		return pipe.Source{
			SourceFunc: func(out [][]float64) (int, error) {
				n, err := d.Read(buf)
				if err != nil && !errors.Is(err, io.EOF) {
					return 0, err
				}
				frames := n / channels
				if frames == 0 {
					return 0, io.EOF
				}
				for i := 0; i < frames; i++ {
					out[0][i] = float64(buf[i*channels+channel])
				}
				return frames, nil
			},
			SignalProperties: pipe.SignalProperties{
				SampleRate: d.SampleRate(),
				Channels:   1,
			},
		}, nil
	}
}
