package playback_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/playback"
)

func TestStreamConfig(t *testing.T) {
	tests := []struct {
		sampleRate   int
		latency      time.Duration
		targetLength uint32
		bufferFrames int
	}{
		{sampleRate: 48000, latency: 10 * time.Millisecond, targetLength: 1920, bufferFrames: 480},
		{sampleRate: 44100, latency: 10 * time.Millisecond, targetLength: 1764, bufferFrames: 441},
		{sampleRate: 96000, latency: 20 * time.Millisecond, targetLength: 7680, bufferFrames: 1920},
		{sampleRate: 8000, latency: 0, targetLength: 0, bufferFrames: 1},
	}
	for _, test := range tests {
		c := playback.NewStreamConfig(test.sampleRate, test.latency)
		assert.Equal(t, playback.FormatFloat32LE, c.Format)
		assert.Equal(t, 1, c.Channels)
		assert.Equal(t, 4, c.FrameSize())
		assert.Equal(t, test.targetLength, c.Buffer.TargetLength)
		assert.Equal(t, test.targetLength, c.Buffer.FragmentSize)
		assert.Equal(t, uint32(playback.BufferDefault), c.Buffer.MaxLength)
		assert.Equal(t, uint32(playback.BufferDefault), c.Buffer.Prebuffer)
		assert.Equal(t, uint32(playback.BufferDefault), c.Buffer.MinRequest)
		assert.Equal(t, test.bufferFrames, c.BufferFrames())
	}
}

func TestSampleFormat(t *testing.T) {
	assert.Equal(t, "float32le", playback.FormatFloat32LE.String())
	assert.Equal(t, 4, playback.FormatFloat32LE.BytesPerSample())
	assert.Equal(t, "unknown", playback.SampleFormat(0).String())
	assert.Equal(t, 0, playback.SampleFormat(0).BytesPerSample())
}
