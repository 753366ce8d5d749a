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

package frame

import (
	"errors"
	"fmt"

	"github.com/patte/go-framesignal/bitseq"
)

// ErrChecksumMismatch is returned when the received checksum does not match
// the one recomputed over the payload.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Layout describes the field widths of one package on the wire.
type Layout struct {
	SizeBits    int
	BitsPerByte int // 8, or 14 with Hamming FEC
	Checksum    Checksum
}

// HeaderEnd returns the bit offset just past the size field of a package
// whose preamble starts at off.
func (l Layout) HeaderEnd(off int) int {
	return off + PreambleLen + l.SizeBits
}

// PayloadBits returns the on-air payload length for size bytes.
func (l Layout) PayloadBits(size int) int {
	return size * l.BitsPerByte
}

// TotalBits returns the full package length for size payload bytes.
func (l Layout) TotalBits(size int) int {
	return PreambleLen + l.SizeBits + l.PayloadBits(size) + l.Checksum.Width()
}

// ValidateHeaderBounds checks that a size field can be read after a
// preamble at off within total bits.
func (l Layout) ValidateHeaderBounds(total, off int) error {
	if off < 0 || l.HeaderEnd(off) > total {
		return fmt.Errorf("%w: size field at %d needs %d bits, have %d",
			bitseq.ErrOutOfBounds, off+PreambleLen, l.SizeBits, total-off-PreambleLen)
	}
	return nil
}

// ValidateBodyBounds checks that the payload and trailing checksum of a
// package at off with size bytes fit within total bits.
func (l Layout) ValidateBodyBounds(total, off, size int) error {
	if size < 0 || off < 0 || off+l.TotalBits(size) > total {
		return fmt.Errorf("%w: package at %d with %d byte payload needs %d bits, have %d",
			bitseq.ErrOutOfBounds, off, size, l.TotalBits(size), total-off)
	}
	return nil
}

// ValidateChecksum recomputes the checksum over payload and compares it with
// the received value.
func ValidateChecksum(c Checksum, payload []byte, received uint16) error {
	if c == ChecksumNone {
		return nil
	}
	if expected := c.Sum(payload); expected != received {
		return &MismatchError{Checksum: c, Expected: expected, Received: received}
	}
	return nil
}

// MismatchError carries both checksum values of a failed comparison.
type MismatchError struct {
	Checksum Checksum
	Expected uint16
	Received uint16
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: computed 0x%04X, received 0x%04X", e.Checksum, e.Expected, e.Received)
}

func (*MismatchError) Unwrap() error {
	return ErrChecksumMismatch
}
