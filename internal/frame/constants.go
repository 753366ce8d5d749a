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

import "github.com/patte/go-framesignal/bitseq"

// Package markers
const (
	PreambleByte = 0xAA // 10101010, sent first
	PreambleLen  = 8    // preamble length in bits
)

// Field widths in bits
const (
	SizeField8  = 8
	SizeField16 = 16

	// HammingBitsPerByte is the on-air size of one payload byte when FEC is on
	// (two 7-bit codewords).
	HammingBitsPerByte = 14
	PlainBitsPerByte   = 8
)

// Preamble returns the preamble as a fresh bit sequence.
func Preamble() bitseq.Bits {
	return bitseq.FromBytes([]byte{PreambleByte})
}

// MaxSize returns the largest payload length a size field of width bits can carry.
func MaxSize(width int) int {
	return 1<<uint(width) - 1
}
