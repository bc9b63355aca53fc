// Package mp3 provides a pipe source that decodes mp3 stream and emits
// a single channel of it.
package mp3

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/pipe"
)

const (
	// decoded stream is always 16-bit stereo.
	channels       = 2
	bytesPerSample = 2
	frameSize      = channels * bytesPerSample
	maxValue       = 1 << 15
)

// ErrChannel is returned when selected channel is not present.
var ErrChannel = errors.New("channel out of range")

// Source returns allocator of mp3 source. Decoded stream is stereo, the
// channel with provided index is emitted as mono signal.
func Source(r io.Reader, channel int) pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		if channel < 0 || channel >= channels {
			return pipe.Source{}, fmt.Errorf("%w: %d of %d", ErrChannel, channel, channels)
		}
		d, err := mp3.NewDecoder(r)
		if err != nil {
			return pipe.Source{}, fmt.Errorf("decode mp3: %w", err)
		}
		buf := make([]byte, bufferSize*frameSize)
		return pipe.Source{
			SourceFunc: func(out [][]float64) (int, error) {
				n, err := io.ReadFull(d, buf)
				if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
					return 0, err
				}
				frames := n / frameSize
				if frames == 0 {
					return 0, io.EOF
				}
				for i := 0; i < frames; i++ {
					pos := i*frameSize + channel*bytesPerSample
					v := int16(binary.LittleEndian.Uint16(buf[pos:]))
					out[0][i] = float64(v) / maxValue
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
