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
	"testing"

	"github.com/patte/go-framesignal/bitseq"
)

// Received sequences come straight off a lossy channel, so every parsing
// step must stay in bounds for arbitrary input.
//
// Run with: go test -fuzz=FuzzExtractBody -fuzztime=30s ./internal/frame/

func FuzzFindPreamble(f *testing.F) {
	f.Add([]byte{0xAA}, 0)
	f.Add([]byte{0x55, 0x55}, 1)
	f.Add([]byte{}, 0)
	f.Add([]byte{0x00, 0xAA, 0x00}, 100)

	f.Fuzz(func(t *testing.T, data []byte, from int) {
		bits := bitseq.FromBytes(data)
		off := FindPreamble(bits, from)
		if off == -1 {
			return
		}
		if !bits.HasPrefixAt(off, preamble) {
			t.Fatalf("FindPreamble returned %d without a preamble there", off)
		}
	})
}

func FuzzExtractBody(f *testing.F) {
	f.Add([]byte{0xAA, 0x00, 0x01, 0x42, 0x00, 0x00}, 0, false)
	f.Add([]byte{0xAA, 0xFF, 0xFF}, 0, false)
	f.Add([]byte{0xAA, 0x02, 0x12, 0x34, 0x00}, 0, true)
	f.Add([]byte{}, 0, true)
	f.Add([]byte{0xAA}, 3, false)

	f.Fuzz(func(_ *testing.T, data []byte, off int, short bool) {
		bits := bitseq.FromBytes(data)
		l := crc16Layout
		if short {
			l = Layout{SizeBits: SizeField8, BitsPerByte: HammingBitsPerByte, Checksum: ChecksumCRC8Bluetooth}
		}
		size, err := ReadSize(bits, l, off)
		if err != nil {
			return
		}
		_, _, _ = ExtractBody(bits, l, off, size)
	})
}

func FuzzChecksum(f *testing.F) {
	f.Add([]byte("123456789"))
	f.Add([]byte{})
	f.Add([]byte{0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, c := range []Checksum{ChecksumCRC8Bluetooth, ChecksumCRC16X25} {
			a, b := c.Sum(data), c.Sum(data)
			if a != b {
				t.Fatalf("%s not deterministic: %04X != %04X", c, a, b)
			}
			if c == ChecksumCRC8Bluetooth && a > 0xFF {
				t.Fatalf("crc8 out of range: %04X", a)
			}
		}
	})
}
