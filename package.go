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

// Package framesignal sends binary payloads through a channel that carries
// one black or white video frame per bit.
//
// A package on the wire is
//
//	preamble 10101010 | size (8 or 16 bits) | payload | checksum (0, 8 or 16 bits)
//
// with every multi-bit field big-endian. The payload section is optionally
// Hamming(7,4) coded. Decoding scans the received bits for the preamble and
// accepts the first candidate, in ascending offset order, whose bounds and
// checksum hold.
package framesignal

import (
	"errors"
	"fmt"

	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/frame"
)

// Bits is the ordered bit sequence exchanged with channels.
type Bits = bitseq.Bits

// Package is a decoded package.
type Package struct {
	Payload   []byte
	Offset    int // bit offset of the preamble in the received sequence
	Size      int // equals len(Payload)
	Profile   Profile
	Corrected int // Hamming codewords corrected, 0 without FEC
	Checksum  uint16
}

// EncodePackage frames payload for transmission.
func EncodePackage(payload []byte, cfg Config) (Bits, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if limit := cfg.Profile.MaxPayload(); len(payload) > limit {
		return nil, fmt.Errorf("%w: %d bytes, %s carries at most %d",
			ErrPayloadTooLarge, len(payload), cfg.Profile, limit)
	}

	l := cfg.layout()
	out := frame.AppendHeader(l, len(payload))
	if cfg.FEC {
		out = bitseq.Concat(out, HammingEncodeBytes(payload))
	} else {
		out = bitseq.Concat(out, bitseq.FromBytes(payload))
	}
	return frame.AppendChecksum(out, l.Checksum, payload), nil
}

// DecodePackage locates and validates the first package in received.
// Candidates that run past the end, declare size 0 or fail the checksum are
// skipped. When none is valid the error wraps ErrDecodeFailure and the cause
// of the last rejection.
func DecodePackage(received Bits, cfg Config) (*Package, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := cfg.layout()
	var lastErr error
	candidates := 0

	for off := frame.FindPreamble(received, 0); off >= 0; off = frame.FindPreamble(received, off+1) {
		candidates++
		cfg.emit(Event{Kind: EventCandidate, Offset: off})

		pkg, err := decodeAt(received, cfg, l, off)
		if err == nil {
			cfg.emit(Event{
				Kind:      EventDecoded,
				Offset:    off,
				Size:      pkg.Size,
				Corrected: pkg.Corrected,
				Actual:    pkg.Checksum,
				Expected:  pkg.Checksum,
			})
			return pkg, nil
		}

		lastErr = err
		cfg.emit(rejection(off, err))
	}

	if lastErr == nil {
		return nil, fmt.Errorf("%w: no preamble in %d bits", ErrDecodeFailure, len(received))
	}
	return nil, fmt.Errorf("%w after %d candidates: %w", ErrDecodeFailure, candidates, lastErr)
}

// sizedError carries the declared size of a rejected candidate to the event.
type sizedError struct {
	err  error
	size int
}

func (e *sizedError) Error() string { return e.err.Error() }
func (e *sizedError) Unwrap() error { return e.err }

func decodeAt(received Bits, cfg Config, l frame.Layout, off int) (*Package, error) {
	size, err := frame.ReadSize(received, l, off)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, &sizedError{err: fmt.Errorf("%w: size field is 0", ErrEmptyPayload)}
	}

	body, sum, err := frame.ExtractBody(received, l, off, size)
	if err != nil {
		return nil, &sizedError{err: err, size: size}
	}

	var (
		payload   []byte
		corrected int
	)
	if cfg.FEC {
		payload, corrected, err = HammingDecodeBits(body)
		if corrected > 0 {
			cfg.emit(Event{Kind: EventCorrected, Offset: off, Size: size, Corrected: corrected})
		}
	} else {
		payload, err = body.Bytes()
	}
	if err != nil {
		return nil, &sizedError{err: err, size: size}
	}

	if err := frame.ValidateChecksum(l.Checksum, payload, sum); err != nil {
		return nil, &sizedError{err: err, size: size}
	}

	return &Package{
		Offset:    off,
		Size:      size,
		Payload:   payload,
		Checksum:  sum,
		Profile:   cfg.Profile,
		Corrected: corrected,
	}, nil
}

func rejection(off int, err error) Event {
	e := Event{Kind: EventRejected, Offset: off, Err: err}

	var se *sizedError
	if errors.As(err, &se) {
		e.Size = se.size
		e.Err = se.err
	}
	var me *frame.MismatchError
	if errors.As(err, &me) {
		e.Expected = me.Expected
		e.Actual = me.Received
	}
	return e
}
