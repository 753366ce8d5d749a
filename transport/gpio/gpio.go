// Copyright 2026 The go-framesignal Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gpio blinks an LED once per frame and samples a light sensor on a
// second pin in the middle of every frame slot.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/ratelimit"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/pacing"
	"github.com/patte/go-framesignal/internal/syncutil"
)

const channelName = "gpio"

// Output drives the LED.
type Output interface {
	Out(l gpio.Level) error
}

// Input reads the light sensor.
type Input interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
}

// Config configures a GPIO channel.
type Config struct {
	LEDPin    string `yaml:"led_pin" toml:"led_pin"`
	SensorPin string `yaml:"sensor_pin" toml:"sensor_pin"`
	// Pull is "down", "up" or "float".
	Pull string `yaml:"pull" toml:"pull"`
	// Invert reads a low sensor level as light.
	Invert bool `yaml:"invert" toml:"invert"`
	// SamplePhase places the sample within the slot, 0 to 1.
	SamplePhase float64 `yaml:"sample_phase" toml:"sample_phase"`
	// ListenFrames is how many slots Receive samples when this side did not
	// transmit. ListenFPS paces them.
	ListenFrames int `yaml:"listen_frames" toml:"listen_frames"`
	ListenFPS    int `yaml:"listen_fps" toml:"listen_fps"`
}

// DefaultConfig samples mid-slot with a pull-down sensor.
func DefaultConfig() Config {
	return Config{
		LEDPin:      "GPIO17",
		SensorPin:   "GPIO27",
		Pull:        "down",
		SamplePhase: 0.5,
		ListenFPS:   30,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := parsePull(c.Pull); err != nil {
		return err
	}
	if c.SamplePhase < 0 || c.SamplePhase >= 1 {
		return fmt.Errorf("gpio: sample phase must be in [0, 1), got %v", c.SamplePhase)
	}
	if c.ListenFrames < 0 {
		return fmt.Errorf("gpio: listen frames must not be negative, got %d", c.ListenFrames)
	}
	if c.ListenFrames > 0 && c.ListenFPS <= 0 {
		return fmt.Errorf("gpio: listen fps must be positive, got %d", c.ListenFPS)
	}
	return nil
}

func parsePull(s string) (gpio.Pull, error) {
	switch s {
	case "", "down":
		return gpio.PullDown, nil
	case "up":
		return gpio.PullUp, nil
	case "float":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("gpio: unknown pull %q", s)
	}
}

// Channel implements framesignal.Channel on two pins.
type Channel struct {
	led      Output
	sensor   Input
	clock    ratelimit.Clock
	captured bitseq.Bits
	config   Config
	mu       syncutil.Mutex
	closed   bool
}

// Option customises a Channel.
type Option func(*Channel)

// WithClock paces frames on clock instead of wall time.
func WithClock(clock ratelimit.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// Open initialises the host drivers and looks up both pins by name.
func Open(config Config, opts ...Option) (*Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	led := gpioreg.ByName(config.LEDPin)
	if led == nil {
		return nil, fmt.Errorf("gpio: no pin named %q", config.LEDPin)
	}
	sensor := gpioreg.ByName(config.SensorPin)
	if sensor == nil {
		return nil, fmt.Errorf("gpio: no pin named %q", config.SensorPin)
	}
	return NewWithPins(led, sensor, config, opts...)
}

// NewWithPins uses pins that are already resolved.
func NewWithPins(led Output, sensor Input, config Config, opts ...Option) (*Channel, error) {
	if led == nil || sensor == nil {
		return nil, errors.New("gpio: led and sensor pins are required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	pull, _ := parsePull(config.Pull)
	if err := sensor.In(pull, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("gpio: configure sensor: %w", err)
	}
	if err := led.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("gpio: configure led: %w", err)
	}
	c := &Channel{led: led, sensor: sensor, config: config}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transmit shows one bit per slot and samples the sensor during each slot.
// The samples are returned by the next Receive.
func (c *Channel) Transmit(ctx context.Context, bits bitseq.Bits, format framesignal.FrameFormat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return framesignal.NewChannelClosedError("transmit", channelName)
	}
	if err := format.Validate(); err != nil {
		return err
	}
	pacer, err := pacing.New(format.FPS, c.clock)
	if err != nil {
		return err
	}
	phase := time.Duration(float64(pacer.Slot()) * c.config.SamplePhase)

	c.captured = nil
	captured := bitseq.New(len(bits))
	defer func() { _ = c.led.Out(gpio.Low) }()

	for i, bit := range bits {
		if err := pacer.Wait(ctx); err != nil {
			return fmt.Errorf("transmit frame %d: %w", i, err)
		}
		if err := c.led.Out(gpio.Level(bit)); err != nil {
			return framesignal.NewChannelError("transmit", channelName, err, framesignal.ErrorTypeTransient)
		}
		if phase > 0 {
			if err := pacer.Sleep(ctx, phase); err != nil {
				return fmt.Errorf("transmit frame %d: %w", i, err)
			}
		}
		captured = append(captured, c.sample())
	}
	c.captured = captured
	framesignal.Debugf("gpio: sent %d frames at %d fps", len(bits), format.FPS)
	return nil
}

// Receive returns the samples taken during the last Transmit. Without one
// it listens for ListenFrames slots.
func (c *Channel) Receive(ctx context.Context) (bitseq.Bits, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, framesignal.NewChannelClosedError("receive", channelName)
	}
	if c.captured != nil {
		out := c.captured
		c.captured = nil
		return out, nil
	}
	if c.config.ListenFrames == 0 {
		return nil, framesignal.NewChannelError("receive", channelName, framesignal.ErrNothingSent, framesignal.ErrorTypePermanent)
	}
	return c.listen(ctx)
}

func (c *Channel) listen(ctx context.Context) (bitseq.Bits, error) {
	pacer, err := pacing.New(c.config.ListenFPS, c.clock)
	if err != nil {
		return nil, err
	}
	phase := time.Duration(float64(pacer.Slot()) * c.config.SamplePhase)
	out := bitseq.New(c.config.ListenFrames)
	for i := range c.config.ListenFrames {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("listen frame %d: %w", i, err)
		}
		if phase > 0 {
			if err := pacer.Sleep(ctx, phase); err != nil {
				return nil, fmt.Errorf("listen frame %d: %w", i, err)
			}
		}
		out = append(out, c.sample())
	}
	framesignal.Debugf("gpio: listened for %d frames at %d fps", len(out), c.config.ListenFPS)
	return out, nil
}

func (c *Channel) sample() bool {
	lit := c.sensor.Read() == gpio.High
	return lit != c.config.Invert
}

// Close switches the LED off.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.led.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio close failed: %w", err)
	}
	return nil
}
