package framesignal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patte/go-framesignal/bitseq"
)

func TestLuminanceToBit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level uint8
		want  bool
	}{
		{0, false},
		{127, false},
		{128, false},
		{129, true},
		{255, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LuminanceToBit(tt.level), "level %d", tt.level)
	}

	assert.Equal(t, uint8(255), BitToLuminance(true))
	assert.Equal(t, uint8(0), BitToLuminance(false))
}

func TestLuminanceBitsRoundTrip(t *testing.T) {
	t.Parallel()

	bits := bitseq.MustParse("1011 0010")
	samples := BitsToLuminance(bits)
	assert.Equal(t, []byte{255, 0, 255, 255, 0, 0, 255, 0}, samples)
	assert.True(t, bits.Equal(LuminanceToBits(samples)))
}

func TestFrameFormat_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultFrameFormat().Validate())
	require.ErrorIs(t, FrameFormat{Width: 10, Height: 10}.Validate(), ErrInvalidFormat)
	require.ErrorIs(t, FrameFormat{Width: 0, Height: 10, FPS: 30}.Validate(), ErrInvalidFormat)
}

func TestPad(t *testing.T) {
	t.Parallel()

	bits := bitseq.MustParse("11")
	assert.Equal(t, "000110", Pad(bits, 3, 1, false).String())
	assert.Equal(t, "11", Pad(bits, 0, 0, true).String())
	assert.Equal(t, "1111", Pad(bits, 1, 1, true).String())
	assert.Equal(t, "11", bits.String(), "input must be untouched")
}
