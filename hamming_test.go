package framesignal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patte/go-framesignal/bitseq"
)

func TestHammingEncode_KnownCodewords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		nibble byte
		want   byte
	}{
		{0b0000, 0b0000000},
		{0b1111, 0b1111111},
		{0b1000, 0b1110000}, // d1 feeds p1 and p2
		{0b0100, 0b1001100}, // d2 feeds p1 and p4
		{0b0010, 0b0101010}, // d3 feeds p2 and p4
		{0b0001, 0b1101001}, // d4 feeds all three
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HammingEncode(tt.nibble), "nibble %04b", tt.nibble)
	}
}

func TestHammingDecode_Clean(t *testing.T) {
	t.Parallel()

	for n := range byte(16) {
		got, corrected := HammingDecode(HammingEncode(n))
		assert.Equal(t, n, got)
		assert.False(t, corrected, "nibble %04b reported a correction on clean input", n)
	}
}

func TestHammingDecode_SingleBitErrors(t *testing.T) {
	t.Parallel()

	for n := range byte(16) {
		code := HammingEncode(n)
		for pos := range 7 {
			got, corrected := HammingDecode(code ^ 1<<pos)
			assert.Equal(t, n, got, "nibble %04b bit %d", n, pos)
			assert.True(t, corrected, "nibble %04b bit %d", n, pos)
		}
	}
}

func TestHammingDecode_IgnoresTopBit(t *testing.T) {
	t.Parallel()

	got, corrected := HammingDecode(0x80 | HammingEncode(0xA))
	assert.Equal(t, byte(0xA), got)
	assert.False(t, corrected)
}

func TestHammingBytes_RoundTrip(t *testing.T) {
	t.Parallel()

	data := []byte{0x00, 0xFF, 0xAA, 0x55, 0xCE, 0x31}
	bits := HammingEncodeBytes(data)
	require.Len(t, bits, len(data)*14)

	got, corrections, err := HammingDecodeBits(bits)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Zero(t, corrections)
}

func TestHammingDecodeBits_OneFlipPerCodeword(t *testing.T) {
	t.Parallel()

	data := []byte("hamming")
	bits := HammingEncodeBytes(data)
	for cw := 0; cw < len(bits)/7; cw++ {
		i := cw*7 + cw%7
		bits[i] = !bits[i]
	}

	got, corrections, err := HammingDecodeBits(bits)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, len(data)*2, corrections)
}

func TestHammingDecodeBits_Alignment(t *testing.T) {
	t.Parallel()

	_, _, err := HammingDecodeBits(bitseq.Repeat(false, 13))
	require.ErrorIs(t, err, ErrAlignment)
}

func TestHammingCodewords(t *testing.T) {
	t.Parallel()

	codes := HammingCodewords([]byte{0x1F})
	assert.Equal(t, []byte{HammingEncode(0x1), HammingEncode(0xF)}, codes)

	codes[0] ^= 0x04
	got, corrections, err := HammingDecodeCodewords(codes)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1F}, got)
	assert.Equal(t, 1, corrections)

	_, _, err = HammingDecodeCodewords([]byte{0x00})
	require.ErrorIs(t, err, ErrAlignment)
}
