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

import "fmt"

// Checksum selects the CRC appended after the payload.
type Checksum int

const (
	// ChecksumNone sends no integrity field.
	ChecksumNone Checksum = iota
	// ChecksumCRC8Bluetooth is CRC-8/BLUETOOTH: poly 0xA7, reflected, init 0, xorout 0.
	ChecksumCRC8Bluetooth
	// ChecksumCRC16X25 is CRC-16/X-25 (IBM SDLC): poly 0x1021, reflected,
	// init 0xFFFF, xorout 0xFFFF.
	ChecksumCRC16X25
)

// Reflected forms of the generator polynomials.
const (
	polyCRC8Bluetooth = 0xE5   // 0xA7 bit-reversed
	polyCRC16X25      = 0x8408 // 0x1021 bit-reversed
)

var (
	crc8BluetoothTable = makeReflectedTable(polyCRC8Bluetooth)
	crc16X25Table      = makeReflectedTable(polyCRC16X25)
)

// Width returns the checksum field width in bits.
func (c Checksum) Width() int {
	switch c {
	case ChecksumCRC8Bluetooth:
		return 8
	case ChecksumCRC16X25:
		return 16
	default:
		return 0
	}
}

// Sum computes the checksum over data. ChecksumNone always returns 0.
func (c Checksum) Sum(data []byte) uint16 {
	switch c {
	case ChecksumCRC8Bluetooth:
		return CRC8Bluetooth(data)
	case ChecksumCRC16X25:
		return CRC16X25(data)
	default:
		return 0
	}
}

func (c Checksum) String() string {
	switch c {
	case ChecksumNone:
		return "none"
	case ChecksumCRC8Bluetooth:
		return "CRC-8/BLUETOOTH"
	case ChecksumCRC16X25:
		return "CRC-16/X-25"
	default:
		return fmt.Sprintf("Checksum(%d)", int(c))
	}
}

// CRC8Bluetooth computes CRC-8/BLUETOOTH. The check value for "123456789" is 0x26.
func CRC8Bluetooth(data []byte) uint16 {
	return updateReflected(&crc8BluetoothTable, 0x00, data)
}

// CRC16X25 computes CRC-16/X-25. The check value for "123456789" is 0x906E.
func CRC16X25(data []byte) uint16 {
	return updateReflected(&crc16X25Table, 0xFFFF, data) ^ 0xFFFF
}

// makeReflectedTable builds the byte-at-a-time table for a reflected CRC of
// up to 16 bits. The same table layout serves both widths because the 8-bit
// register never has bits above bit 7 set.
func makeReflectedTable(poly uint16) [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

func updateReflected(table *[256]uint16, crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = crc>>8 ^ table[byte(crc)^b]
	}
	return crc
}
