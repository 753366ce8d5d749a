package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/patte/go-framesignal"
	simtest "github.com/patte/go-framesignal/internal/testing"
	"github.com/patte/go-framesignal/transport/gpio"
	"github.com/patte/go-framesignal/transport/uart"
	"github.com/patte/go-framesignal/transport/video"
	"github.com/patte/go-framesignal/transport/ws"
)

// Channel names accepted by --channel.
const (
	channelVideo = "video"
	channelUART  = "uart"
	channelGPIO  = "gpio"
	channelWS    = "ws"
	channelSim   = "sim"
)

// Config is the file configuration. Every section starts from its package
// defaults; keys present in the file override them.
type Config struct {
	Channel     string                  `yaml:"channel" toml:"channel"`
	MetricsAddr string                  `yaml:"metrics_addr" toml:"metrics_addr"`
	SessionLog  string                  `yaml:"session_log" toml:"session_log"`
	Profile     framesignal.Profile     `yaml:"profile" toml:"profile"`
	Format      FormatConfig            `yaml:"format" toml:"format"`
	LeadingPad  int                     `yaml:"leading_pad" toml:"leading_pad"`
	TrailingPad int                     `yaml:"trailing_pad" toml:"trailing_pad"`
	Retry       framesignal.RetryConfig `yaml:"retry" toml:"retry"`
	Video       video.Config            `yaml:"video" toml:"video"`
	UART        uart.Config             `yaml:"uart" toml:"uart"`
	GPIO        gpio.Config             `yaml:"gpio" toml:"gpio"`
	WS          ws.Config               `yaml:"ws" toml:"ws"`
	Sim         SimConfig               `yaml:"sim" toml:"sim"`
	FEC         bool                    `yaml:"fec" toml:"fec"`
	PadBit      bool                    `yaml:"pad_bit" toml:"pad_bit"`
}

// FormatConfig mirrors framesignal.FrameFormat with file keys.
type FormatConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
	FPS    int `yaml:"fps" toml:"fps"`
}

// SimConfig configures the in-memory lossy channel.
type SimConfig struct {
	Seed              uint64  `yaml:"seed" toml:"seed"`
	MaxLeadingJunk    int     `yaml:"max_leading_junk" toml:"max_leading_junk"`
	MaxTrailingJunk   int     `yaml:"max_trailing_junk" toml:"max_trailing_junk"`
	DuplicateBoundary int     `yaml:"duplicate_boundary" toml:"duplicate_boundary"`
	FlipProbability   float64 `yaml:"flip_probability" toml:"flip_probability"`
	NoiseAmplitude    int     `yaml:"noise_amplitude" toml:"noise_amplitude"`
}

func (s SimConfig) lossConfig() simtest.LossConfig {
	return simtest.LossConfig{
		Seed:              s.Seed,
		MaxLeadingJunk:    s.MaxLeadingJunk,
		MaxTrailingJunk:   s.MaxTrailingJunk,
		DuplicateBoundary: s.DuplicateBoundary,
		FlipProbability:   s.FlipProbability,
		NoiseAmplitude:    s.NoiseAmplitude,
	}
}

func defaultConfig() Config {
	format := framesignal.DefaultFrameFormat()
	return Config{
		Channel:     channelSim,
		Profile:     framesignal.DefaultProfile,
		Format:      FormatConfig{Width: format.Width, Height: format.Height, FPS: format.FPS},
		LeadingPad:  3,
		TrailingPad: 3,
		Retry:       *framesignal.DefaultRetryConfig(),
		Video:       video.DefaultConfig(),
		UART:        uart.DefaultConfig(),
		GPIO:        gpio.DefaultConfig(),
		WS:          ws.DefaultConfig(),
		Sim: SimConfig{
			Seed:            1,
			MaxLeadingJunk:  30,
			MaxTrailingJunk: 30,
		},
	}
}

// ParseConfigFile reads path as YAML or TOML, chosen by extension. An empty
// path returns the defaults.
func ParseConfigFile(path string) (*Config, error) {
	if path == "" {
		conf := defaultConfig()
		return &conf, conf.Validate()
	}
	buf, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(buf, filepath.Ext(path))
}

// ParseConfig decodes buf over the defaults and validates the result. ext
// is ".yaml", ".yml" or ".toml".
func ParseConfig(buf []byte, ext string) (*Config, error) {
	conf := defaultConfig()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(buf))
		dec.KnownFields(true)
		if err := dec.Decode(&conf); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		meta, err := toml.Decode(string(buf), &conf)
		if err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml config: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks the link settings and the selected channel's section.
func (c *Config) Validate() error {
	if err := c.LinkConfig().Validate(); err != nil {
		return err
	}
	switch c.Channel {
	case channelVideo:
		return c.Video.Validate()
	case channelUART:
		return c.UART.Validate()
	case channelGPIO:
		return c.GPIO.Validate()
	case channelWS:
		return c.WS.Validate()
	case channelSim:
		if c.Sim.FlipProbability < 0 || c.Sim.FlipProbability > 1 {
			return fmt.Errorf("sim: flip probability must be in [0, 1], got %v", c.Sim.FlipProbability)
		}
		return nil
	default:
		return fmt.Errorf("unknown channel %q", c.Channel)
	}
}

// LinkConfig returns the link settings.
func (c *Config) LinkConfig() framesignal.LinkConfig {
	retry := c.Retry
	return framesignal.LinkConfig{
		Package: framesignal.Config{
			Profile: c.Profile,
			FEC:     c.FEC,
		},
		Format: framesignal.FrameFormat{
			Width:  c.Format.Width,
			Height: c.Format.Height,
			FPS:    c.Format.FPS,
		},
		LeadingPad:  c.LeadingPad,
		TrailingPad: c.TrailingPad,
		PadBit:      c.PadBit,
		Retry:       &retry,
	}
}
