package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pipelined.dev/playback"
)

const envPrefix = "PLAYBACK"

// Backends.
const (
	backendPulse     = "pulse"
	backendPortAudio = "portaudio"
)

type config struct {
	backend     string
	device      string
	appName     string
	streamName  string
	autoFlush   time.Duration
	latency     time.Duration
	bufferSize  int
	channel     int
	metricsAddr string
	path        string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", backendPulse)
	v.SetDefault("device", "")
	v.SetDefault("app-name", playback.DefaultAppName)
	v.SetDefault("stream-name", playback.DefaultStreamName)
	v.SetDefault("auto-flush", playback.DefaultAutoFlush)
	v.SetDefault("latency", playback.DefaultLatency)
	v.SetDefault("buffer-size", 512)
	v.SetDefault("channel", 0)
	v.SetDefault("metrics-addr", "")
}

func flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("playback", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("env-file", ".env", "env file with "+envPrefix+"_* variables")
	flags.StringP("backend", "b", backendPulse, "audio server: pulse or portaudio")
	flags.StringP("device", "d", "", "output device, server default if empty")
	flags.String("app-name", playback.DefaultAppName, "application name")
	flags.String("stream-name", playback.DefaultStreamName, "stream name")
	flags.Duration("auto-flush", playback.DefaultAutoFlush, "auto-flush interval, 0 disables it")
	flags.Duration("latency", playback.DefaultLatency, "target latency")
	flags.Int("buffer-size", 512, "pipe buffer size in samples")
	flags.Int("channel", 0, "channel of the file to play")
	flags.String("metrics-addr", "", "address to serve /debug/vars")
	return flags
}

// loadConfig parses flags, then reads optional env and config files.
// Priority is flags, environment, config file, defaults.
func loadConfig(args []string) (config, error) {
	flags := flagSet()
	if err := flags.Parse(args); err != nil {
		return config{}, err
	}
	if flags.NArg() != 1 {
		return config{}, errors.New("expected exactly one file to play")
	}

	envFile, _ := flags.GetString("env-file")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return config{}, err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := config{
		backend:     v.GetString("backend"),
		device:      v.GetString("device"),
		appName:     v.GetString("app-name"),
		streamName:  v.GetString("stream-name"),
		autoFlush:   v.GetDuration("auto-flush"),
		latency:     v.GetDuration("latency"),
		bufferSize:  v.GetInt("buffer-size"),
		channel:     v.GetInt("channel"),
		metricsAddr: v.GetString("metrics-addr"),
		path:        flags.Arg(0),
	}
	return c, c.validate()
}

func (c config) validate() error {
	switch c.backend {
	case backendPulse, backendPortAudio:
	default:
		return fmt.Errorf("unknown backend: %q", c.backend)
	}
	if c.bufferSize <= 0 {
		return fmt.Errorf("invalid buffer size: %d", c.bufferSize)
	}
	if c.autoFlush < 0 {
		return fmt.Errorf("invalid auto-flush interval: %v", c.autoFlush)
	}
	return nil
}
