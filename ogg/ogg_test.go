package ogg_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/playback/mock"
	"pipelined.dev/playback/ogg"
	"pipelined.dev/playback/pipe"
)

func TestSourceInvalid(t *testing.T) {
	for _, data := range [][]byte{{}, []byte("OggS but not really")} {
		_, err := pipe.New(512, pipe.Line{
			Source: ogg.Source(bytes.NewReader(data), 0),
			Sink:   (&mock.Sink{}).Sink(),
		})
		assert.Error(t, err)
	}
}
