package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/playback"
)

func TestLoadConfig(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "missing.env")
	tests := []struct {
		name     string
		args     []string
		env      map[string]string
		expected config
		err      bool
	}{
		{
			name: "defaults",
			args: []string{"--env-file", noEnv, "a.wav"},
			expected: config{
				backend:    backendPulse,
				appName:    playback.DefaultAppName,
				streamName: playback.DefaultStreamName,
				autoFlush:  playback.DefaultAutoFlush,
				latency:    playback.DefaultLatency,
				bufferSize: 512,
				path:       "a.wav",
			},
		},
		{
			name: "flags",
			args: []string{
				"--env-file", noEnv,
				"-b", "portaudio",
				"-d", "speakers",
				"--auto-flush", "0",
				"--latency", "20ms",
				"--channel", "1",
				"b.mp3",
			},
			expected: config{
				backend:    backendPortAudio,
				device:     "speakers",
				appName:    playback.DefaultAppName,
				streamName: playback.DefaultStreamName,
				latency:    20 * time.Millisecond,
				bufferSize: 512,
				channel:    1,
				path:       "b.mp3",
			},
		},
		{
			name: "env",
			args: []string{"--env-file", noEnv, "--device", "flag", "c.wav"},
			env: map[string]string{
				"PLAYBACK_DEVICE":      "env",
				"PLAYBACK_STREAM_NAME": "Radio",
				"PLAYBACK_BUFFER_SIZE": "1024",
			},
			expected: config{
				backend:    backendPulse,
				device:     "flag",
				appName:    playback.DefaultAppName,
				streamName: "Radio",
				autoFlush:  playback.DefaultAutoFlush,
				latency:    playback.DefaultLatency,
				bufferSize: 1024,
				path:       "c.wav",
			},
		},
		{
			name: "no file",
			args: []string{"--env-file", noEnv},
			err:  true,
		},
		{
			name: "unknown backend",
			args: []string{"--env-file", noEnv, "-b", "alsa", "a.wav"},
			err:  true,
		},
		{
			name: "invalid buffer size",
			args: []string{"--env-file", noEnv, "--buffer-size", "0", "a.wav"},
			err:  true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			c, err := loadConfig(test.args)
			if test.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, c)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "playback.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PLAYBACK_APP_NAME=radio\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PLAYBACK_APP_NAME") })

	c, err := loadConfig([]string{"--env-file", envFile, "a.wav"})
	require.NoError(t, err)
	assert.Equal(t, "radio", c.appName)
}

func TestFileSource(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "a.flac"))
	require.NoError(t, err)
	defer f.Close()
	_, err = fileSource(f, 0)
	assert.Error(t, err)
}
