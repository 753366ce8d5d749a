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

// Package bitseq provides the ordered bit sequence used on the wire.
//
// A Bits value is the transmission order: index 0 is the first frame sent.
// Every operation returns a new value and leaves its inputs untouched, so a
// sequence handed to a channel can never be changed behind its back.
package bitseq

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAlignment is returned when a byte conversion is asked of a
	// sequence whose length is not a multiple of 8.
	ErrAlignment = errors.New("bit count is not a multiple of 8")
	// ErrOutOfBounds is returned when a read would go past the end of the sequence.
	ErrOutOfBounds = errors.New("bit range out of bounds")
	// ErrInvalidBit is returned by Parse for characters other than 0 and 1.
	ErrInvalidBit = errors.New("invalid bit character")
)

// MaxFieldWidth is the widest unsigned field Uint and AppendUint handle.
const MaxFieldWidth = 64

// Bits is an ordered sequence of bits.
type Bits []bool

// New returns an empty sequence with room for n bits.
func New(n int) Bits {
	return make(Bits, 0, n)
}

// FromBytes expands each byte into 8 bits, most significant bit first.
func FromBytes(data []byte) Bits {
	out := make(Bits, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			out = append(out, b&(1<<uint(i)) != 0)
		}
	}
	return out
}

// Repeat returns n copies of bit.
func Repeat(bit bool, n int) Bits {
	if n <= 0 {
		return Bits{}
	}
	out := make(Bits, n)
	if bit {
		for i := range out {
			out[i] = true
		}
	}
	return out
}

// Parse reads a sequence written as '0' and '1' characters. Spaces and
// underscores are ignored so long sequences can be grouped for readability.
func Parse(s string) (Bits, error) {
	out := New(len(s))
	for i, r := range s {
		switch r {
		case '0':
			out = append(out, false)
		case '1':
			out = append(out, true)
		case ' ', '_':
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidBit, r, i)
		}
	}
	return out, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Bits {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Concat joins sequences in order.
func Concat(parts ...Bits) Bits {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Bits, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Len returns the number of bits.
func (b Bits) Len() int {
	return len(b)
}

// Clone returns an independent copy.
func (b Bits) Clone() Bits {
	out := make(Bits, len(b))
	copy(out, b)
	return out
}

// Append returns b followed by bits.
func (b Bits) Append(bits ...bool) Bits {
	return Concat(b, Bits(bits))
}

// Prepend returns bits followed by b.
func (b Bits) Prepend(bits ...bool) Bits {
	return Concat(Bits(bits), b)
}

// Slice returns count bits starting at start.
func (b Bits) Slice(start, count int) (Bits, error) {
	if err := checkRange(len(b), start, count); err != nil {
		return nil, err
	}
	out := make(Bits, count)
	copy(out, b[start:start+count])
	return out, nil
}

// Equal reports whether both sequences hold the same bits in the same order.
func (b Bits) Equal(other Bits) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefixAt reports whether pattern occurs at offset i.
func (b Bits) HasPrefixAt(i int, pattern Bits) bool {
	if i < 0 || i+len(pattern) > len(b) {
		return false
	}
	for j, bit := range pattern {
		if b[i+j] != bit {
			return false
		}
	}
	return true
}

// Bytes packs the sequence into bytes, most significant bit first.
// The length must be a multiple of 8.
func (b Bits) Bytes() ([]byte, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: have %d bits", ErrAlignment, len(b))
	}
	out := make([]byte, len(b)/8)
	for i, bit := range b {
		if bit {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out, nil
}

// TruncateToBytes drops trailing bits so the length becomes a multiple of 8.
// It is the explicit form of the truncation Bytes refuses to do.
func (b Bits) TruncateToBytes() Bits {
	return b[:len(b)-len(b)%8].Clone()
}

// Uint reads a big-endian unsigned field of width bits at start.
func (b Bits) Uint(start, width int) (uint64, error) {
	if width < 0 || width > MaxFieldWidth {
		return 0, fmt.Errorf("field width %d not in 0..%d", width, MaxFieldWidth)
	}
	if err := checkRange(len(b), start, width); err != nil {
		return 0, err
	}
	var v uint64
	for _, bit := range b[start : start+width] {
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// AppendUint returns b followed by v as a big-endian field of width bits.
// Bits of v above width are discarded; callers check the range first.
func AppendUint(b Bits, v uint64, width int) Bits {
	out := make(Bits, len(b), len(b)+width)
	copy(out, b)
	for i := width - 1; i >= 0; i-- {
		out = append(out, v&(1<<uint(i)) != 0)
	}
	return out
}

// Ones counts the set bits.
func (b Bits) Ones() int {
	n := 0
	for _, bit := range b {
		if bit {
			n++
		}
	}
	return n
}

// String renders the sequence as '0' and '1' characters.
func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, bit := range b {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func checkRange(length, start, count int) error {
	if start < 0 || count < 0 || start+count > length {
		return fmt.Errorf("%w: start %d count %d length %d", ErrOutOfBounds, start, count, length)
	}
	return nil
}
