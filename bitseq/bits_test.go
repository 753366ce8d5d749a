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

package bitseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytes_MSBFirst(t *testing.T) {
	t.Parallel()

	got := FromBytes([]byte{0b11001110, 0b00110001})
	assert.Equal(t, "1100111000110001", got.String())
}

func TestBytes_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single", []byte{0xAA}},
		{"mixed", []byte{0x00, 0xFF, 0x5A, 0x01, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromBytes(tt.data).Bytes()
			require.NoError(t, err)
			assert.Equal(t, tt.data, got)
		})
	}
}

func TestBytes_Alignment(t *testing.T) {
	t.Parallel()

	_, err := MustParse("1010101").Bytes()
	require.ErrorIs(t, err, ErrAlignment)

	truncated := MustParse("10101010 1").TruncateToBytes()
	got, err := truncated.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, got)
}

func TestSlice(t *testing.T) {
	t.Parallel()

	b := MustParse("1100_1010")

	got, err := b.Slice(2, 4)
	require.NoError(t, err)
	assert.Equal(t, "0010", got.String())

	got, err = b.Slice(8, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = b.Slice(5, 4)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = b.Slice(-1, 2)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSlice_DoesNotAlias(t *testing.T) {
	t.Parallel()

	b := MustParse("1111")
	s, err := b.Slice(0, 2)
	require.NoError(t, err)
	s[0] = false
	assert.Equal(t, "1111", b.String())
}

func TestConcatAppendPrepend(t *testing.T) {
	t.Parallel()

	a := MustParse("101")
	b := MustParse("00")

	assert.Equal(t, "10100", Concat(a, b).String())
	assert.Equal(t, "1011", a.Append(true).String())
	assert.Equal(t, "00101", a.Prepend(false, false).String())
	assert.Equal(t, "101", a.String(), "inputs stay untouched")
}

func TestUintAndAppendUint(t *testing.T) {
	t.Parallel()

	b := AppendUint(MustParse("1"), 0x0102, 16)
	assert.Equal(t, "10000000100000010", b.String())

	v, err := b.Uint(1, 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102), v)

	_, err = b.Uint(10, 16)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = b.Uint(0, 65)
	require.Error(t, err)
}

func TestParse(t *testing.T) {
	t.Parallel()

	b, err := Parse("10 10_1")
	require.NoError(t, err)
	assert.Equal(t, "10101", b.String())

	_, err = Parse("10x")
	require.ErrorIs(t, err, ErrInvalidBit)
}

func TestEqualAndHasPrefixAt(t *testing.T) {
	t.Parallel()

	b := MustParse("0010101010")
	assert.True(t, b.Equal(MustParse("0010101010")))
	assert.False(t, b.Equal(MustParse("001010101")))
	assert.False(t, b.Equal(MustParse("0010101011")))

	preamble := MustParse("10101010")
	assert.False(t, b.HasPrefixAt(0, preamble))
	assert.True(t, b.HasPrefixAt(2, preamble))
	assert.False(t, b.HasPrefixAt(3, preamble))
	assert.False(t, b.HasPrefixAt(-1, preamble))
}

func TestRepeatAndOnes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "111", Repeat(true, 3).String())
	assert.Equal(t, "00", Repeat(false, 2).String())
	assert.Empty(t, Repeat(true, -1))
	assert.Equal(t, 4, MustParse("10101010").Ones())
}
