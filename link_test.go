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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback returns what was transmitted, after passing it through mangle.
type loopback struct {
	mangle      func(attempt int, bits Bits) Bits
	transmitErr error
	last        Bits
	formats     []FrameFormat
	receives    int
	closed      bool
}

func (l *loopback) Transmit(_ context.Context, bits Bits, format FrameFormat) error {
	if l.closed {
		return NewChannelClosedError("transmit", "loopback")
	}
	if l.transmitErr != nil {
		return l.transmitErr
	}
	l.last = bits.Clone()
	l.formats = append(l.formats, format)
	return nil
}

func (l *loopback) Receive(context.Context) (Bits, error) {
	if l.closed {
		return nil, NewChannelClosedError("receive", "loopback")
	}
	l.receives++
	if l.mangle != nil {
		return l.mangle(l.receives, l.last.Clone()), nil
	}
	return l.last.Clone(), nil
}

func (l *loopback) Close() error {
	l.closed = true
	return nil
}

type recordingObserver struct {
	errs    []error
	results []*RoundTripResult
}

func (o *recordingObserver) ObserveRoundTrip(r *RoundTripResult, err error) {
	o.results = append(o.results, r)
	o.errs = append(o.errs, err)
}

func TestNewLink_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewLink(nil, DefaultLinkConfig())
	require.Error(t, err)

	cfg := DefaultLinkConfig()
	cfg.Format.FPS = 0
	_, err = NewLink(&loopback{}, cfg)
	require.ErrorIs(t, err, ErrInvalidFormat)

	cfg = DefaultLinkConfig()
	cfg.LeadingPad = -1
	_, err = NewLink(&loopback{}, cfg)
	require.Error(t, err)
}

func TestLink_RoundTrip(t *testing.T) {
	t.Parallel()

	ch := &loopback{}
	cfg := DefaultLinkConfig()
	cfg.LeadingPad, cfg.TrailingPad = 3, 3
	cfg.Format.FPS = 30

	link, err := NewLink(ch, cfg)
	require.NoError(t, err)

	payload := []byte("https://github.com/patte")
	result, err := link.RoundTrip(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, payload, result.Package.Payload)
	assert.Equal(t, 3, result.Package.Offset)
	assert.Len(t, result.Sent, 3+cfg.Package.PackageBits(len(payload))+3)
	assert.True(t, result.Sent.Equal(result.Received))
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, time.Duration(len(result.Sent))*time.Second/30, result.Airtime)
	assert.InDelta(t, float64(len(payload)*8)/float64(len(result.Received)), result.Efficiency(), 1e-9)
	assert.Equal(t, []FrameFormat{cfg.Format}, ch.formats)
}

func TestLink_SendReceiveSeparately(t *testing.T) {
	t.Parallel()

	ch := &loopback{}
	link, err := NewLink(ch, DefaultLinkConfig())
	require.NoError(t, err)

	sent, err := link.Send(context.Background(), []byte{0xCE, 0x31})
	require.NoError(t, err)
	assert.Equal(t, "10101010", sent[:8].String())

	pkg, err := link.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCE, 0x31}, pkg.Payload)
}

func TestLink_DecodeFailureWithoutRetry(t *testing.T) {
	t.Parallel()

	ch := &loopback{mangle: func(_ int, bits Bits) Bits {
		bits[20] = !bits[20]
		return bits
	}}
	obs := &recordingObserver{}
	link, err := NewLink(ch, DefaultLinkConfig(), WithObserver(obs))
	require.NoError(t, err)

	result, err := link.RoundTrip(context.Background(), []byte("hello"))
	require.ErrorIs(t, err, ErrDecodeFailure)
	require.NotNil(t, result)
	assert.Nil(t, result.Package)
	assert.NotEmpty(t, result.Received)
	assert.Zero(t, result.Efficiency())
	assert.Equal(t, 1, ch.receives)
	require.Len(t, obs.errs, 1)
	require.ErrorIs(t, obs.errs[0], ErrDecodeFailure)
}

func TestLink_RetriesUntilClean(t *testing.T) {
	t.Parallel()

	ch := &loopback{mangle: func(attempt int, bits Bits) Bits {
		if attempt < 3 {
			bits[30] = !bits[30]
		}
		return bits
	}}
	cfg := DefaultLinkConfig()
	cfg.Retry = fastRetry(5)
	obs := &recordingObserver{}

	link, err := NewLink(ch, cfg, WithObserver(obs))
	require.NoError(t, err)

	result, err := link.RoundTrip(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "hello", string(result.Package.Payload))
	assert.Len(t, obs.results, 3)
	require.ErrorIs(t, obs.errs[0], ErrDecodeFailure)
	assert.NoError(t, obs.errs[2])
}

func TestLink_DoesNotRetryPermanentErrors(t *testing.T) {
	t.Parallel()

	ch := &loopback{}
	cfg := DefaultLinkConfig()
	cfg.Package.Profile = ProfileCRC8
	cfg.Retry = fastRetry(5)

	link, err := NewLink(ch, cfg)
	require.NoError(t, err)

	_, err = link.RoundTrip(context.Background(), make([]byte, 256))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, ch.receives)
}

func TestLink_TransmitError(t *testing.T) {
	t.Parallel()

	ch := &loopback{transmitErr: NewChannelTimeoutError("transmit", "loopback")}
	link, err := NewLink(ch, DefaultLinkConfig())
	require.NoError(t, err)

	_, err = link.Send(context.Background(), []byte{1})
	require.ErrorIs(t, err, ErrChannelTimeout)
	assert.True(t, IsRetryable(err))
}

func TestLink_Close(t *testing.T) {
	t.Parallel()

	ch := &loopback{}
	link, err := NewLink(ch, DefaultLinkConfig())
	require.NoError(t, err)
	require.NoError(t, link.Close())

	_, err = link.RoundTrip(context.Background(), []byte{1})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.True(t, errors.Is(err, ErrChannelClosed))
}

func TestAirtime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Second, airtime(30, 30))
	assert.Equal(t, 2*time.Second, airtime(120, 60))
	assert.Zero(t, airtime(10, 0))
}
