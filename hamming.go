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
	"fmt"

	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/frame"
)

// Hamming(7,4) codeword layout, bit 6 down to bit 0: p1 p2 d1 p4 d2 d3 d4.
// Positions are numbered 1..7 from the most significant bit, so a non-zero
// syndrome names the position to flip.
const (
	hammingBits = 7
	hammingMask = 0x7F
)

// HammingEncode encodes the low 4 bits of nibble (d1 is bit 3) into a 7-bit
// codeword.
func HammingEncode(nibble byte) byte {
	d1 := (nibble >> 3) & 1
	d2 := (nibble >> 2) & 1
	d3 := (nibble >> 1) & 1
	d4 := nibble & 1

	p1 := d1 ^ d2 ^ d4
	p2 := d1 ^ d3 ^ d4
	p4 := d2 ^ d3 ^ d4

	return p1<<6 | p2<<5 | d1<<4 | p4<<3 | d2<<2 | d3<<1 | d4
}

// HammingDecode corrects up to one flipped bit in the low 7 bits of code and
// returns the data nibble. corrected reports whether a bit was flipped.
// Two flipped bits are miscorrected without notice.
func HammingDecode(code byte) (nibble byte, corrected bool) {
	c := code & hammingMask
	bit := func(pos int) byte { return (c >> (hammingBits - pos)) & 1 }

	c1 := bit(1) ^ bit(3) ^ bit(5) ^ bit(7)
	c2 := bit(2) ^ bit(3) ^ bit(6) ^ bit(7)
	c4 := bit(4) ^ bit(5) ^ bit(6) ^ bit(7)

	if syndrome := int(c4<<2 | c2<<1 | c1); syndrome != 0 {
		c ^= 1 << (hammingBits - syndrome)
		corrected = true
	}

	// d1 at bit 4, d2..d4 at bits 2..0
	return (c>>1)&0x8 | c&0x7, corrected
}

// HammingEncodeBytes encodes each byte as two codewords, high nibble first,
// giving 14 bits per byte.
func HammingEncodeBytes(data []byte) bitseq.Bits {
	out := bitseq.New(len(data) * frame.HammingBitsPerByte)
	for _, b := range data {
		out = bitseq.AppendUint(out, uint64(HammingEncode(b>>4)), hammingBits)
		out = bitseq.AppendUint(out, uint64(HammingEncode(b&0x0F)), hammingBits)
	}
	return out
}

// HammingDecodeBits reverses HammingEncodeBytes and returns the number of
// codewords that needed a correction.
func HammingDecodeBits(bits bitseq.Bits) ([]byte, int, error) {
	if len(bits)%frame.HammingBitsPerByte != 0 {
		return nil, 0, fmt.Errorf("%w: %d bits is not a whole number of Hamming byte pairs",
			ErrAlignment, len(bits))
	}

	out := make([]byte, len(bits)/frame.HammingBitsPerByte)
	corrections := 0
	for i := range out {
		base := i * frame.HammingBitsPerByte
		hi, err := bits.Uint(base, hammingBits)
		if err != nil {
			return nil, 0, err
		}
		lo, err := bits.Uint(base+hammingBits, hammingBits)
		if err != nil {
			return nil, 0, err
		}

		h, fixedHi := HammingDecode(byte(hi))
		l, fixedLo := HammingDecode(byte(lo))
		if fixedHi {
			corrections++
		}
		if fixedLo {
			corrections++
		}
		out[i] = h<<4 | l
	}
	return out, corrections, nil
}

// HammingCodewords encodes data one codeword per output byte, high nibble
// first. The top bit of every output byte is zero.
func HammingCodewords(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		out = append(out, HammingEncode(b>>4), HammingEncode(b&0x0F))
	}
	return out
}

// HammingDecodeCodewords reverses HammingCodewords. The input length must be
// even.
func HammingDecodeCodewords(codes []byte) ([]byte, int, error) {
	if len(codes)%2 != 0 {
		return nil, 0, fmt.Errorf("%w: odd codeword count %d", ErrAlignment, len(codes))
	}
	out := make([]byte, len(codes)/2)
	corrections := 0
	for i := range out {
		h, fixedHi := HammingDecode(codes[2*i])
		l, fixedLo := HammingDecode(codes[2*i+1])
		if fixedHi {
			corrections++
		}
		if fixedLo {
			corrections++
		}
		out[i] = h<<4 | l
	}
	return out, corrections, nil
}
