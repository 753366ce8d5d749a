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
	"fmt"

	"github.com/patte/go-framesignal/bitseq"
)

var preamble = Preamble()

// FindPreamble returns the first offset at or after from where the preamble
// occurs, or -1 when there is none.
func FindPreamble(bits bitseq.Bits, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+PreambleLen <= len(bits); i++ {
		if bits.HasPrefixAt(i, preamble) {
			return i
		}
	}
	return -1
}

// ReadSize reads the size field of the package whose preamble starts at off.
func ReadSize(bits bitseq.Bits, l Layout, off int) (int, error) {
	if err := l.ValidateHeaderBounds(len(bits), off); err != nil {
		return 0, err
	}
	v, err := bits.Uint(off+PreambleLen, l.SizeBits)
	if err != nil {
		return 0, fmt.Errorf("read size field: %w", err)
	}
	return int(v), nil
}

// ExtractBody returns the raw payload bits and the received checksum of the
// package at off. The caller has already read size with ReadSize.
func ExtractBody(bits bitseq.Bits, l Layout, off, size int) (bitseq.Bits, uint16, error) {
	if err := l.ValidateBodyBounds(len(bits), off, size); err != nil {
		return nil, 0, err
	}

	start := l.HeaderEnd(off)
	body, err := bits.Slice(start, l.PayloadBits(size))
	if err != nil {
		return nil, 0, fmt.Errorf("read payload: %w", err)
	}

	var sum uint64
	if w := l.Checksum.Width(); w > 0 {
		sum, err = bits.Uint(start+l.PayloadBits(size), w)
		if err != nil {
			return nil, 0, fmt.Errorf("read checksum: %w", err)
		}
	}
	return body, uint16(sum), nil
}

// AppendHeader returns the preamble followed by the size field.
func AppendHeader(l Layout, size int) bitseq.Bits {
	return bitseq.AppendUint(Preamble(), uint64(size), l.SizeBits)
}

// AppendChecksum returns bits followed by the checksum of payload.
func AppendChecksum(bits bitseq.Bits, c Checksum, payload []byte) bitseq.Bits {
	if c == ChecksumNone {
		return bits
	}
	return bitseq.AppendUint(bits, uint64(c.Sum(payload)), c.Width())
}
