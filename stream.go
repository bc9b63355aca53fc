package playback

import (
	"math"
	"time"
)

const (
	// DefaultLatency is the target latency of playback streams.
	DefaultLatency = 10 * time.Millisecond
	// DefaultAutoFlush is the default interval of forced flushes.
	DefaultAutoFlush = 300 * time.Second
	// DefaultAppName is the application name reported to the server.
	DefaultAppName = "playback"
	// DefaultStreamName is the stream name reported to the server.
	DefaultStreamName = "Audio"

	// BufferDefault lets the server choose the buffer attribute value.
	BufferDefault = math.MaxUint32
)

type (
	// Server opens playback streams on an audio server. Empty device
	// name selects the server default output.
	Server interface {
		Open(device string, config StreamConfig) (Stream, error)
	}

	// Stream is an open playback stream. It is owned by a single sink and
	// is not safe for concurrent use.
	Stream interface {
		// Write blocks until all samples are accepted by the server.
		Write(samples []float32) error
		// Flush discards buffered but not yet played audio.
		Flush() error
		// Close releases the stream.
		Close() error
	}

	// SampleFormat is the encoding of samples on the wire.
	SampleFormat int

	// StreamConfig describes the playback stream. It is immutable for
	// the life of the stream.
	StreamConfig struct {
		Format        SampleFormat
		SampleRate    int
		Channels      int
		TargetLatency time.Duration
		AppName       string
		StreamName    string
		Buffer        BufferAttr
	}

	// BufferAttr contains buffering attributes in bytes. BufferDefault
	// value means the server default.
	BufferAttr struct {
		MaxLength    uint32
		TargetLength uint32
		Prebuffer    uint32
		MinRequest   uint32
		FragmentSize uint32
	}
)

const (
	// FormatFloat32LE is a 32-bit float little-endian format.
	FormatFloat32LE SampleFormat = iota + 1
)

// String returns the name of the format.
func (f SampleFormat) String() string {
	switch f {
	case FormatFloat32LE:
		return "float32le"
	default:
		return "unknown"
	}
}

// BytesPerSample returns size of a single sample.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatFloat32LE:
		return 4
	default:
		return 0
	}
}

// NewStreamConfig returns mono float32 stream config. Buffer attributes
// are derived from the target latency.
func NewStreamConfig(sampleRate int, latency time.Duration) StreamConfig {
	c := StreamConfig{
		Format:        FormatFloat32LE,
		SampleRate:    sampleRate,
		Channels:      1,
		TargetLatency: latency,
		AppName:       DefaultAppName,
		StreamName:    DefaultStreamName,
	}
	size := c.DurationToBytes(latency)
	c.Buffer = BufferAttr{
		MaxLength:    BufferDefault,
		TargetLength: size,
		Prebuffer:    BufferDefault,
		MinRequest:   BufferDefault,
		FragmentSize: size,
	}
	return c
}

// FrameSize returns size of a single frame in bytes.
func (c StreamConfig) FrameSize() int {
	return c.Format.BytesPerSample() * c.Channels
}

// DurationToBytes converts duration to the number of bytes of whole
// frames played during it.
func (c StreamConfig) DurationToBytes(d time.Duration) uint32 {
	frames := d.Microseconds() * int64(c.SampleRate) / int64(time.Second/time.Microsecond)
	return uint32(frames * int64(c.FrameSize()))
}

// BufferFrames returns the target buffer length in frames. At least one
// frame is always returned.
func (c StreamConfig) BufferFrames() int {
	fs := c.FrameSize()
	if fs == 0 || c.Buffer.TargetLength == BufferDefault || c.Buffer.TargetLength < uint32(fs) {
		return 1
	}
	return int(c.Buffer.TargetLength) / fs
}
