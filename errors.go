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
	"io"
	"syscall"

	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/frame"
)

// Bit buffer and framing errors
var (
	// ErrAlignment is returned when bits are converted to bytes and the bit
	// count is not a multiple of 8 (or of 14 for Hamming blocks).
	ErrAlignment = bitseq.ErrAlignment
	// ErrOutOfBounds is returned when a slice or field read goes past the end.
	ErrOutOfBounds = bitseq.ErrOutOfBounds
	// ErrChecksumMismatch marks a candidate package whose checksum is wrong.
	// DecodePackage only reports it through events and as the cause wrapped
	// by ErrDecodeFailure.
	ErrChecksumMismatch = frame.ErrChecksumMismatch

	ErrPayloadTooLarge = errors.New("payload too large for size field")
	ErrEmptyPayload    = errors.New("empty payload")
	ErrDecodeFailure   = errors.New("no valid package found")
	ErrInvalidProfile  = errors.New("invalid profile")
)

// Channel errors
var (
	ErrChannelClosed  = errors.New("channel is closed")
	ErrChannelTimeout = errors.New("channel timeout")
	ErrNothingSent    = errors.New("no frames transmitted yet")
	ErrInvalidFormat  = errors.New("invalid frame format")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

// ChannelError wraps an adapter failure with the operation and the channel it
// happened on.
type ChannelError struct {
	Err       error     // Underlying error
	Op        string    // "transmit", "receive", "close", ...
	Channel   string    // Adapter name or device path
	Type      ErrorType // Error category
	Retryable bool
}

func (e *ChannelError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewChannelError creates a channel error whose retryability follows errType.
func NewChannelError(op, channel string, err error, errType ErrorType) *ChannelError {
	return &ChannelError{
		Op:        op,
		Channel:   channel,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewChannelTimeoutError creates a timeout error for adapter I/O.
func NewChannelTimeoutError(op, channel string) *ChannelError {
	return NewChannelError(op, channel, ErrChannelTimeout, ErrorTypeTimeout)
}

// NewChannelClosedError creates the error adapters return once closed.
func NewChannelClosedError(op, channel string) *ChannelError {
	return NewChannelError(op, channel, ErrChannelClosed, ErrorTypePermanent)
}

// IsRetryable reports whether a round trip that failed with err may succeed
// when repeated. A decode failure is retryable because the next capture can
// be cleaner; bad input such as an oversized payload is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ce *ChannelError
	if errors.As(err, &ce) {
		return ce.Retryable
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrDecodeFailure),
		errors.Is(err, ErrChannelTimeout):
		return true
	default:
		return false
	}
}

// IsFatal reports whether the channel is gone and no further round trips
// should be attempted on it.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ChannelError
	if errors.As(err, &ce) && ce.Type == ErrorTypePermanent {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // only device-gone errors matter here
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}
	}

	switch {
	case errors.Is(err, ErrChannelClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}
