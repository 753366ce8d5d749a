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

// Package video carries bits as a sequence of uniform grayscale frames.
//
// Transmit renders one PNG per bit and, in ModeVideo, muxes them into a video
// file with ffmpeg. Receive decodes the video back into frames and samples
// each one against the luminance threshold. ModeFrames skips the muxer and
// reads the rendered frames directly.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/syncutil"
)

const channelName = "video"

// Mode selects whether frames go through a video file.
type Mode string

const (
	ModeVideo  Mode = "video"
	ModeFrames Mode = "frames"
)

// ErrInsufficientDiskSpace is returned when Dir has less than MinDiskSpaceMB free.
var ErrInsufficientDiskSpace = errors.New("insufficient disk space")

// Config configures a video channel.
type Config struct {
	// Dir holds the rendered and decoded frames.
	Dir string `yaml:"dir" toml:"dir"`
	// Output is the video file. Relative paths are inside Dir.
	Output     string `yaml:"output" toml:"output"`
	FFmpegPath string `yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	Codec      string `yaml:"codec" toml:"codec"`
	PixFmt     string `yaml:"pix_fmt" toml:"pix_fmt"`
	Mode       Mode   `yaml:"mode" toml:"mode"`
	Sample     Sample `yaml:"sample" toml:"sample"`
	// MinDiskSpaceMB is checked before rendering. 0 disables the check.
	MinDiskSpaceMB uint64 `yaml:"min_disk_space_mb" toml:"min_disk_space_mb"`
	// KeepFrames leaves the PNGs on disk after a round trip.
	KeepFrames bool `yaml:"keep_frames" toml:"keep_frames"`
}

// DefaultConfig renders into ./frames and muxes to output.mp4 with libx264.
func DefaultConfig() Config {
	return Config{
		Dir:            "frames",
		Output:         "output.mp4",
		Codec:          "libx264",
		PixFmt:         "yuv420p",
		Mode:           ModeVideo,
		Sample:         SampleOrigin,
		MinDiskSpaceMB: 50,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.New("video: frame directory is required")
	}
	switch c.Mode {
	case ModeVideo:
		if c.Output == "" {
			return errors.New("video: output file is required")
		}
	case ModeFrames:
	default:
		return fmt.Errorf("video: unknown mode %q", c.Mode)
	}
	switch c.Sample {
	case "", SampleOrigin, SampleMean:
	default:
		return fmt.Errorf("video: unknown sample %q", c.Sample)
	}
	return nil
}

// Channel implements framesignal.Channel over rendered frames.
type Channel struct {
	muxer  Muxer
	freeMB func(string) (uint64, error)
	config Config
	frames int
	mu     syncutil.Mutex
	closed bool
}

// Option customises a Channel.
type Option func(*Channel)

// WithMuxer replaces the ffmpeg muxer.
func WithMuxer(m Muxer) Option {
	return func(c *Channel) { c.muxer = m }
}

// New creates a video channel.
func New(config Config, opts ...Option) (*Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	c := &Channel{
		config: config,
		muxer:  FFmpeg{Path: config.FFmpegPath, Codec: config.Codec, PixFmt: config.PixFmt},
		freeMB: freeMB,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Channel) renderDir() string { return filepath.Join(c.config.Dir, "render") }
func (c *Channel) decodeDir() string { return filepath.Join(c.config.Dir, "decode") }

// OutputPath returns the resolved video file path.
func (c *Channel) OutputPath() string {
	if filepath.IsAbs(c.config.Output) {
		return c.config.Output
	}
	return filepath.Join(c.config.Dir, c.config.Output)
}

// Transmit renders bits and, in ModeVideo, muxes them.
func (c *Channel) Transmit(ctx context.Context, bits bitseq.Bits, format framesignal.FrameFormat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return framesignal.NewChannelClosedError("transmit", channelName)
	}
	if err := format.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(c.config.Dir, 0o750); err != nil {
		return framesignal.NewChannelError("transmit", channelName, err, framesignal.ErrorTypePermanent)
	}
	if err := c.checkDiskSpace(); err != nil {
		return err
	}

	dir := c.renderDir()
	if err := resetDir(dir); err != nil {
		return framesignal.NewChannelError("transmit", channelName, err, framesignal.ErrorTypePermanent)
	}
	if err := WriteFrames(dir, bits, format); err != nil {
		return framesignal.NewChannelError("render", channelName, err, framesignal.ErrorTypePermanent)
	}
	framesignal.Debugf("video: rendered %d frames at %dx%d into %s", len(bits), format.Width, format.Height, dir)

	if c.config.Mode == ModeVideo {
		if err := c.muxer.Encode(ctx, dir, format.FPS, c.OutputPath()); err != nil {
			return framesignal.NewChannelError("encode", channelName, err, framesignal.ErrorTypeTransient)
		}
		framesignal.Debugf("video: muxed %s at %d fps", c.OutputPath(), format.FPS)
		if !c.config.KeepFrames {
			_ = os.RemoveAll(dir)
		}
	}
	c.frames = len(bits)
	return nil
}

// Receive samples the frames produced by the last Transmit.
func (c *Channel) Receive(ctx context.Context) (bitseq.Bits, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, framesignal.NewChannelClosedError("receive", channelName)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := c.renderDir()
	if c.config.Mode == ModeVideo {
		if _, err := os.Stat(c.OutputPath()); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, framesignal.NewChannelError("receive", channelName, framesignal.ErrNothingSent, framesignal.ErrorTypePermanent)
			}
			return nil, framesignal.NewChannelError("receive", channelName, err, framesignal.ErrorTypePermanent)
		}
		dir = c.decodeDir()
		if err := resetDir(dir); err != nil {
			return nil, framesignal.NewChannelError("receive", channelName, err, framesignal.ErrorTypePermanent)
		}
		if err := c.muxer.Decode(ctx, c.OutputPath(), dir); err != nil {
			return nil, framesignal.NewChannelError("decode", channelName, err, framesignal.ErrorTypeTransient)
		}
		if !c.config.KeepFrames {
			defer func() { _ = os.RemoveAll(dir) }()
		}
	}

	bits, err := ReadFrames(dir, c.config.Sample)
	if err != nil {
		return nil, framesignal.NewChannelError("sample", channelName, err, framesignal.ErrorTypePermanent)
	}
	if len(bits) == 0 {
		return nil, framesignal.NewChannelError("receive", channelName, framesignal.ErrNothingSent, framesignal.ErrorTypePermanent)
	}
	framesignal.Debugf("video: sampled %d frames (%d transmitted)", len(bits), c.frames)
	return bits, nil
}

// Close marks the channel closed. Files on disk are left in place.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Channel) checkDiskSpace() error {
	if c.config.MinDiskSpaceMB == 0 {
		return nil
	}
	free, err := c.freeMB(c.config.Dir)
	if err != nil {
		return framesignal.NewChannelError("transmit", channelName, err, framesignal.ErrorTypePermanent)
	}
	if free < c.config.MinDiskSpaceMB {
		return framesignal.NewChannelError("transmit", channelName,
			fmt.Errorf("%w: %d MB free, need %d", ErrInsufficientDiskSpace, free, c.config.MinDiskSpaceMB),
			framesignal.ErrorTypePermanent)
	}
	return nil
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
