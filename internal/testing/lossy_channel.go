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

// Package testing provides test doubles for channels and serial ports.
//
// LossyChannel implements framesignal.Channel in memory and reproduces the
// damage a render, encode, decode and threshold pass does to a frame
// sequence: junk frames before and after, frames lost or repeated at the
// boundaries, flipped bits and gray-level noise around the threshold.
// With a fixed Seed the damage is identical on every run.
package testing

import (
	"context"
	"math/rand/v2"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/syncutil"
)

// LossConfig configures the damage applied by LossyChannel.
type LossConfig struct {
	// Flips lists bit indexes, relative to the transmitted sequence, that
	// are always inverted.
	Flips []int
	Seed  uint64
	// Up to this many random frames are added before and after.
	MaxLeadingJunk  int
	MaxTrailingJunk int
	// Up to this many frames are dropped from the start and from the end.
	MaxDropLeading  int
	MaxDropTrailing int
	// DuplicateBoundary repeats the first and last frame this many times,
	// as a muxer padding a stream to whole GOPs does.
	DuplicateBoundary int
	// FlipProbability inverts each frame independently.
	FlipProbability float64
	// NoiseAmplitude adds uniform noise in [-a, a] to each gray level before
	// thresholding. From 127 upwards it can flip ones to zeros.
	NoiseAmplitude int
}

// LossyChannel is an in-memory framesignal.Channel.
type LossyChannel struct {
	rng      *rand.Rand
	sent     bitseq.Bits
	received bitseq.Bits
	config   LossConfig
	format   framesignal.FrameFormat
	mu       syncutil.Mutex
	sends    int
	closed   bool
}

// NewLossyChannel returns a channel applying config. A zero config is a
// perfect loopback.
func NewLossyChannel(config LossConfig) *LossyChannel {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // test code, not crypto
	}
	return &LossyChannel{config: config, rng: rng}
}

// Transmit records bits. The damage is applied on Receive.
func (c *LossyChannel) Transmit(ctx context.Context, bits framesignal.Bits, format framesignal.FrameFormat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return framesignal.NewChannelClosedError("transmit", "lossy")
	}
	c.sent = bits.Clone()
	c.format = format
	c.sends++
	return nil
}

// Receive returns the last transmitted sequence after damage.
func (c *LossyChannel) Receive(ctx context.Context) (framesignal.Bits, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, framesignal.NewChannelClosedError("receive", "lossy")
	}
	if c.sent == nil {
		return nil, framesignal.NewChannelError("receive", "lossy", framesignal.ErrNothingSent, framesignal.ErrorTypePermanent)
	}
	c.received = c.damage(c.sent)
	return c.received.Clone(), nil
}

// Close marks the channel closed.
func (c *LossyChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Sent returns the last transmitted sequence.
func (c *LossyChannel) Sent() framesignal.Bits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent.Clone()
}

// Received returns the last sequence handed out by Receive.
func (c *LossyChannel) Received() framesignal.Bits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.received.Clone()
}

// Format returns the frame format of the last transmission.
func (c *LossyChannel) Format() framesignal.FrameFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.format
}

// Sends returns the number of Transmit calls.
func (c *LossyChannel) Sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sends
}

// SetConfig replaces the damage configuration, keeping the random stream.
func (c *LossyChannel) SetConfig(config LossConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = config
}

func (c *LossyChannel) damage(sent bitseq.Bits) bitseq.Bits {
	bits := sent.Clone()

	for _, i := range c.config.Flips {
		if i >= 0 && i < len(bits) {
			bits[i] = !bits[i]
		}
	}

	if c.config.FlipProbability > 0 || c.config.NoiseAmplitude > 0 {
		for i, b := range bits {
			if c.config.FlipProbability > 0 && c.rng.Float64() < c.config.FlipProbability {
				b = !b
			}
			if c.config.NoiseAmplitude > 0 {
				b = framesignal.LuminanceToBit(c.noisy(framesignal.BitToLuminance(b)))
			}
			bits[i] = b
		}
	}

	bits = c.dropBoundaries(bits)
	bits = duplicateBoundaries(bits, c.config.DuplicateBoundary)

	return bitseq.Concat(c.junk(c.config.MaxLeadingJunk), bits, c.junk(c.config.MaxTrailingJunk))
}

func (c *LossyChannel) dropBoundaries(bits bitseq.Bits) bitseq.Bits {
	lead := c.upTo(c.config.MaxDropLeading)
	trail := c.upTo(c.config.MaxDropTrailing)
	if lead+trail >= len(bits) {
		return bitseq.Bits{}
	}
	return bits[lead : len(bits)-trail]
}

func duplicateBoundaries(bits bitseq.Bits, n int) bitseq.Bits {
	if n <= 0 || len(bits) == 0 {
		return bits
	}
	return bitseq.Concat(bitseq.Repeat(bits[0], n), bits, bitseq.Repeat(bits[len(bits)-1], n))
}

func (c *LossyChannel) junk(maxLen int) bitseq.Bits {
	n := c.upTo(maxLen)
	out := bitseq.New(n)
	for range n {
		out = append(out, c.rng.IntN(2) == 1)
	}
	return out
}

func (c *LossyChannel) noisy(level uint8) uint8 {
	a := c.config.NoiseAmplitude
	v := int(level) + c.rng.IntN(2*a+1) - a
	return uint8(min(max(v, 0), 255))
}

// upTo returns a uniform value in [0, n].
func (c *LossyChannel) upTo(n int) int {
	if n <= 0 {
		return 0
	}
	return c.rng.IntN(n + 1)
}
