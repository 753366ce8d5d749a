package framesignal

import (
	"context"
	"fmt"

	"github.com/patte/go-framesignal/bitseq"
)

// Channel moves a bit sequence across the visual medium, one frame per bit.
// Receive returns whatever the medium delivered, which may be longer,
// shorter, shifted or corrupted relative to what was transmitted.
//
// Implementations must honour ctx cancellation on blocking I/O.
type Channel interface {
	Transmit(ctx context.Context, bits Bits, format FrameFormat) error
	Receive(ctx context.Context) (Bits, error)
	Close() error
}

// FrameFormat describes the rendered frames.
type FrameFormat struct {
	Width  int
	Height int
	FPS    int
}

// DefaultFrameFormat returns a small square format at 30 frames per second.
func DefaultFrameFormat() FrameFormat {
	return FrameFormat{Width: 200, Height: 200, FPS: 30}
}

// Validate checks that all dimensions are positive.
func (f FrameFormat) Validate() error {
	if f.Width <= 0 || f.Height <= 0 || f.FPS <= 0 {
		return fmt.Errorf("%w: %dx%d at %d fps", ErrInvalidFormat, f.Width, f.Height, f.FPS)
	}
	return nil
}

// Luminance levels of a rendered bit and the decision threshold used when
// sampling it back.
const (
	LuminanceZero      uint8 = 0
	LuminanceOne       uint8 = 255
	LuminanceThreshold uint8 = 128
)

// BitToLuminance maps a bit to the gray level it is rendered with.
func BitToLuminance(bit bool) uint8 {
	if bit {
		return LuminanceOne
	}
	return LuminanceZero
}

// LuminanceToBit thresholds a sampled gray level. Values above 128 are 1.
func LuminanceToBit(l uint8) bool {
	return l > LuminanceThreshold
}

// BitsToLuminance maps every bit to its gray level.
func BitsToLuminance(bits Bits) []byte {
	out := make([]byte, len(bits))
	for i, b := range bits {
		out[i] = BitToLuminance(b)
	}
	return out
}

// LuminanceToBits thresholds every sample.
func LuminanceToBits(samples []byte) Bits {
	out := bitseq.New(len(samples))
	for _, l := range samples {
		out = append(out, LuminanceToBit(l))
	}
	return out
}

// Pad surrounds bits with lead and trail copies of bit.
func Pad(bits Bits, lead, trail int, bit bool) Bits {
	return bitseq.Concat(bitseq.Repeat(bit, lead), bits, bitseq.Repeat(bit, trail))
}
