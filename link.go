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

package framesignal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patte/go-framesignal/internal/syncutil"
)

// LinkConfig configures a Link.
type LinkConfig struct {
	// Retry repeats failed round trips. Nil means a single attempt.
	Retry       *RetryConfig
	Format      FrameFormat
	Package     Config
	LeadingPad  int
	TrailingPad int
	PadBit      bool
}

// DefaultLinkConfig returns CRC-16 framing on the default frame format with
// no padding and no retry.
func DefaultLinkConfig() LinkConfig {
	return LinkConfig{
		Package: DefaultConfig(),
		Format:  DefaultFrameFormat(),
	}
}

// Validate checks the link configuration.
func (c LinkConfig) Validate() error {
	if err := c.Package.Validate(); err != nil {
		return err
	}
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if c.LeadingPad < 0 || c.TrailingPad < 0 {
		return fmt.Errorf("padding must not be negative: lead %d trail %d", c.LeadingPad, c.TrailingPad)
	}
	return nil
}

// RoundTripResult reports one send and receive.
type RoundTripResult struct {
	Package  *Package
	Sent     Bits
	Received Bits
	Attempts int
	// Airtime is the nominal duration of the sent frames at the link FPS.
	Airtime time.Duration
}

// Efficiency returns payload bits divided by received bits.
func (r *RoundTripResult) Efficiency() float64 {
	if r == nil || r.Package == nil || len(r.Received) == 0 {
		return 0
	}
	return float64(r.Package.Size*8) / float64(len(r.Received))
}

// RoundTripObserver is told about every finished round trip attempt.
type RoundTripObserver interface {
	ObserveRoundTrip(result *RoundTripResult, err error)
}

// Link frames payloads and moves them over a Channel. Calls on one Link are
// serialised; the channel is never used by two round trips at once.
type Link struct {
	channel  Channel
	observer RoundTripObserver
	config   LinkConfig
	mu       syncutil.Mutex
}

// LinkOption customises a Link.
type LinkOption func(*Link)

// WithObserver reports every round trip to o.
func WithObserver(o RoundTripObserver) LinkOption {
	return func(l *Link) { l.observer = o }
}

// NewLink creates a link over ch.
func NewLink(ch Channel, config LinkConfig, opts ...LinkOption) (*Link, error) {
	if ch == nil {
		return nil, errors.New("channel is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &Link{channel: ch, config: config}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Config returns the link configuration.
func (l *Link) Config() LinkConfig {
	return l.config
}

// Send encodes payload, pads it and transmits it. It returns the transmitted
// bits.
func (l *Link) Send(ctx context.Context, payload []byte) (Bits, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.send(ctx, payload)
}

// Receive reads from the channel and decodes the first valid package.
func (l *Link) Receive(ctx context.Context) (*Package, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pkg, _, err := l.receive(ctx)
	return pkg, err
}

// RoundTrip sends payload and decodes what comes back. With a retry policy
// configured the whole round trip is repeated on retryable failures.
func (l *Link) RoundTrip(ctx context.Context, payload []byte) (*RoundTripResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.Retry == nil {
		result, err := l.roundTrip(ctx, payload, 1)
		l.observe(result, err)
		return result, err
	}

	var result *RoundTripResult
	err := RetryWithConfig(ctx, l.config.Retry, func(ctx context.Context, attempt int) error {
		r, err := l.roundTrip(ctx, payload, attempt)
		l.observe(r, err)
		result = r
		return err
	})
	return result, err
}

func (l *Link) roundTrip(ctx context.Context, payload []byte, attempt int) (*RoundTripResult, error) {
	sent, err := l.send(ctx, payload)
	if err != nil {
		return nil, err
	}

	result := &RoundTripResult{
		Sent:     sent,
		Attempts: attempt,
		Airtime:  airtime(len(sent), l.config.Format.FPS),
	}

	pkg, received, err := l.receive(ctx)
	result.Received = received
	result.Package = pkg
	if err != nil {
		return result, err
	}

	Debugf("round trip %d: sent %d bits, received %d, payload %d bytes at bit %d",
		attempt, len(sent), len(received), pkg.Size, pkg.Offset)
	return result, nil
}

func (l *Link) send(ctx context.Context, payload []byte) (Bits, error) {
	encoded, err := EncodePackage(payload, l.config.Package)
	if err != nil {
		return nil, err
	}
	bits := Pad(encoded, l.config.LeadingPad, l.config.TrailingPad, l.config.PadBit)

	if err := l.channel.Transmit(ctx, bits, l.config.Format); err != nil {
		return nil, fmt.Errorf("transmit %d bits: %w", len(bits), err)
	}
	return bits, nil
}

func (l *Link) receive(ctx context.Context) (*Package, Bits, error) {
	received, err := l.channel.Receive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("receive: %w", err)
	}
	pkg, err := DecodePackage(received, l.config.Package)
	if err != nil {
		return nil, received, err
	}
	return pkg, received, nil
}

func (l *Link) observe(result *RoundTripResult, err error) {
	if l.observer != nil {
		l.observer.ObserveRoundTrip(result, err)
	}
}

// Close closes the underlying channel.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channel.Close()
}

func airtime(frames, fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(fps)
}
