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
	"strings"

	"github.com/patte/go-framesignal/internal/frame"
)

// Profile selects the size field width and checksum of a package. Sender and
// receiver must agree on it out of band; it is never detected from the data.
type Profile int

const (
	// ProfileCRC16 uses a 16-bit size field and a CRC-16/X-25 trailer.
	ProfileCRC16 Profile = iota
	// ProfileCRC8 uses an 8-bit size field and a CRC-8/BLUETOOTH trailer.
	ProfileCRC8
	// ProfileSizeOnly uses a 16-bit size field and no checksum. The first
	// preamble whose declared size fits is accepted.
	ProfileSizeOnly
)

// DefaultProfile is used when no profile is configured.
const DefaultProfile = ProfileCRC16

func (p Profile) String() string {
	switch p {
	case ProfileCRC16:
		return "crc16"
	case ProfileCRC8:
		return "crc8"
	case ProfileSizeOnly:
		return "size-only"
	default:
		return fmt.Sprintf("Profile(%d)", int(p))
	}
}

// ParseProfile parses the names produced by Profile.String.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "crc16", "crc-16":
		return ProfileCRC16, nil
	case "crc8", "crc-8":
		return ProfileCRC8, nil
	case "size-only", "sizeonly", "none":
		return ProfileSizeOnly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidProfile, s)
	}
}

// MarshalText implements encoding.TextMarshaler so profiles can live in
// config files by name.
func (p Profile) MarshalText() ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Profile) UnmarshalText(text []byte) error {
	v, err := ParseProfile(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Profile) validate() error {
	switch p {
	case ProfileCRC16, ProfileCRC8, ProfileSizeOnly:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidProfile, int(p))
	}
}

// SizeBits returns the width of the size field.
func (p Profile) SizeBits() int {
	if p == ProfileCRC8 {
		return frame.SizeField8
	}
	return frame.SizeField16
}

// ChecksumBits returns the width of the checksum trailer, 0 for ProfileSizeOnly.
func (p Profile) ChecksumBits() int {
	return p.checksum().Width()
}

// MaxPayload returns the largest payload in bytes the size field can carry.
func (p Profile) MaxPayload() int {
	return frame.MaxSize(p.SizeBits())
}

func (p Profile) checksum() frame.Checksum {
	switch p {
	case ProfileCRC16:
		return frame.ChecksumCRC16X25
	case ProfileCRC8:
		return frame.ChecksumCRC8Bluetooth
	default:
		return frame.ChecksumNone
	}
}

// Config holds the framing options shared by encoder and decoder.
type Config struct {
	// OnEvent receives decoder progress. Nil disables events.
	OnEvent func(Event)
	Profile Profile
	// FEC enables Hamming(7,4) coding of the payload section.
	FEC bool
}

// DefaultConfig returns the recommended configuration: CRC-16, no FEC.
func DefaultConfig() Config {
	return Config{Profile: DefaultProfile}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return c.Profile.validate()
}

// PackageBits returns the on-air length of a package carrying size bytes.
func (c Config) PackageBits(size int) int {
	return c.layout().TotalBits(size)
}

// Overhead returns the number of bits a package adds on top of the raw
// payload bits.
func (c Config) Overhead(size int) int {
	return c.PackageBits(size) - size*frame.PlainBitsPerByte
}

func (c Config) layout() frame.Layout {
	bpb := frame.PlainBitsPerByte
	if c.FEC {
		bpb = frame.HammingBitsPerByte
	}
	return frame.Layout{
		SizeBits:    c.Profile.SizeBits(),
		BitsPerByte: bpb,
		Checksum:    c.Profile.checksum(),
	}
}

func (c Config) emit(e Event) {
	if c.OnEvent != nil {
		c.OnEvent(e)
	}
}
