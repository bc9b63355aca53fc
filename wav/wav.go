// Package wav provides a pipe source that reads a single channel of PCM
// wav data.
package wav

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/playback/mutable"
	"pipelined.dev/playback/pipe"
)

var (
	// ErrInvalidWav is returned when wav header is not valid.
	ErrInvalidWav = errors.New("invalid wav")
	// ErrUnsupportedBitDepth is returned when bit depth is not 8, 16,
	// 24 or 32.
	ErrUnsupportedBitDepth = errors.New("unsupported bit depth")
	// ErrChannel is returned when selected channel is not present.
	ErrChannel = errors.New("channel out of range")
)

// Source returns allocator of wav source. The channel with provided
// index is emitted as mono signal. The reader is not closed by the
// source.
func Source(r io.ReadSeeker, channel int) pipe.SourceAllocatorFunc {
	return func(mctx mutable.Context, bufferSize int) (pipe.Source, error) {
		decoder := wav.NewDecoder(r)
		if !decoder.IsValidFile() {
			return pipe.Source{}, ErrInvalidWav
		}
		bitDepth := int(decoder.BitDepth)
		scale, err := scale(bitDepth)
		if err != nil {
			return pipe.Source{}, err
		}
		format := decoder.Format()
		if channel < 0 || channel >= format.NumChannels {
			return pipe.Source{}, fmt.Errorf("%w: %d of %d", ErrChannel, channel, format.NumChannels)
		}

		channels := format.NumChannels
		ib := &audio.IntBuffer{
			Format:         format,
			Data:           make([]int, bufferSize*channels),
			SourceBitDepth: bitDepth,
		}
		return pipe.Source{
			SourceFunc: func(out [][]float64) (int, error) {
				read, err := decoder.PCMBuffer(ib)
				if err != nil && !errors.Is(err, io.EOF) {
					return 0, err
				}
				frames := read / channels
				if frames == 0 {
					return 0, io.EOF
				}
				for i := 0; i < frames; i++ {
					out[0][i] = scale.float(ib.Data[i*channels+channel])
				}
				return frames, nil
			},
			SignalProperties: pipe.SignalProperties{
				SampleRate: int(decoder.SampleRate),
				Channels:   1,
			},
		}, nil
	}
}

// conversion describes integer samples of a certain bit depth.
type conversion struct {
	offset int
	max    float64
}

func scale(bitDepth int) (conversion, error) {
	switch bitDepth {
	case 8:
		// 8-bit wav samples are unsigned.
		return conversion{offset: 128, max: 128}, nil
	case 16, 24, 32:
		return conversion{max: float64(int64(1) << (bitDepth - 1))}, nil
	}
	return conversion{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
}

func (c conversion) float(v int) float64 {
	return float64(v-c.offset) / c.max
}
