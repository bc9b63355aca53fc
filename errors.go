package playback

import "errors"

var (
	// ErrOpen is returned when stream cannot be opened.
	ErrOpen = errors.New("open stream")
	// ErrNoStream is returned when sink has no open stream.
	ErrNoStream = errors.New("no open stream")
	// ErrWrite is returned when stream write failed.
	ErrWrite = errors.New("write stream")
	// ErrClosed is returned when sink is closed.
	ErrClosed = errors.New("sink is closed")
	// ErrChannels is returned when input signal is not mono.
	ErrChannels = errors.New("only mono signal is supported")
	// ErrSampleRate is returned for invalid or mismatched sample rate.
	ErrSampleRate = errors.New("invalid sample rate")
)
