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

// Package message encodes the structured payload carried by framesignal
// packages.
//
// The layout is the bincode 1.x default encoding of a struct with a u32 id
// and a string, so payloads interoperate with tools that use that format:
//
//	id      u32 little-endian
//	length  u64 little-endian
//	content length bytes of UTF-8
package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Header sizes in bytes.
const (
	idLen     = 4
	lengthLen = 8
	headerLen = idLen + lengthLen
)

// Message errors.
var (
	ErrTruncated    = errors.New("message: truncated")
	ErrTrailingData = errors.New("message: trailing data")
	ErrInvalidUTF8  = errors.New("message: content is not valid UTF-8")
)

// Message is an identified text payload.
type Message struct {
	Content string
	ID      uint32
}

// Marshal encodes m.
func (m Message) Marshal() []byte {
	out := make([]byte, headerLen, headerLen+len(m.Content))
	binary.LittleEndian.PutUint32(out[:idLen], m.ID)
	binary.LittleEndian.PutUint64(out[idLen:headerLen], uint64(len(m.Content)))
	return append(out, m.Content...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m Message) MarshalBinary() ([]byte, error) {
	return m.Marshal(), nil
}

// Unmarshal decodes data. The content must be valid UTF-8 and fill data
// exactly.
func Unmarshal(data []byte) (Message, error) {
	if len(data) < headerLen {
		return Message{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), headerLen)
	}

	id := binary.LittleEndian.Uint32(data[:idLen])
	n := binary.LittleEndian.Uint64(data[idLen:headerLen])
	rest := data[headerLen:]

	switch {
	case n > uint64(len(rest)):
		return Message{}, fmt.Errorf("%w: content length %d, have %d", ErrTruncated, n, len(rest))
	case n < uint64(len(rest)):
		return Message{}, fmt.Errorf("%w: %d bytes after content", ErrTrailingData, uint64(len(rest))-n)
	}
	if !utf8.Valid(rest) {
		return Message{}, ErrInvalidUTF8
	}
	return Message{ID: id, Content: string(rest)}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Message) UnmarshalBinary(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Message) String() string {
	return fmt.Sprintf("#%d %q", m.ID, m.Content)
}
