package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
)

func TestLossyChannel_PerfectLoopback(t *testing.T) {
	t.Parallel()

	ch := NewLossyChannel(LossConfig{})
	bits := bitseq.MustParse("1010101000000001")
	format := framesignal.DefaultFrameFormat()

	require.NoError(t, ch.Transmit(context.Background(), bits, format))
	got, err := ch.Receive(context.Background())
	require.NoError(t, err)
	assert.True(t, bits.Equal(got))
	assert.Equal(t, format, ch.Format())
	assert.Equal(t, 1, ch.Sends())
	assert.True(t, got.Equal(ch.Received()))
}

func TestLossyChannel_ReceiveBeforeTransmit(t *testing.T) {
	t.Parallel()

	_, err := NewLossyChannel(LossConfig{}).Receive(context.Background())
	require.ErrorIs(t, err, framesignal.ErrNothingSent)
}

func TestLossyChannel_SameSeedSameDamage(t *testing.T) {
	t.Parallel()

	config := LossConfig{
		Seed:            42,
		MaxLeadingJunk:  20,
		MaxTrailingJunk: 20,
		FlipProbability: 0.05,
		NoiseAmplitude:  140,
	}
	bits := bitseq.FromBytes([]byte("deterministic"))

	run := func() bitseq.Bits {
		ch := NewLossyChannel(config)
		require.NoError(t, ch.Transmit(context.Background(), bits, framesignal.DefaultFrameFormat()))
		got, err := ch.Receive(context.Background())
		require.NoError(t, err)
		return got
	}
	assert.True(t, run().Equal(run()))
}

func TestLossyChannel_FixedFlips(t *testing.T) {
	t.Parallel()

	ch := NewLossyChannel(LossConfig{Flips: []int{0, 3, 99}})
	require.NoError(t, ch.Transmit(context.Background(), bitseq.MustParse("0000"), framesignal.DefaultFrameFormat()))
	got, err := ch.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1001", got.String())
	assert.Equal(t, "0000", ch.Sent().String(), "transmitted bits are untouched")
}

func TestLossyChannel_BoundaryDamage(t *testing.T) {
	t.Parallel()

	bits := bitseq.MustParse("1100110011")

	dup := NewLossyChannel(LossConfig{DuplicateBoundary: 2})
	require.NoError(t, dup.Transmit(context.Background(), bits, framesignal.DefaultFrameFormat()))
	got, err := dup.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "11"+"1100110011"+"11", got.String())

	drop := NewLossyChannel(LossConfig{Seed: 7, MaxDropLeading: 3, MaxDropTrailing: 3})
	require.NoError(t, drop.Transmit(context.Background(), bits, framesignal.DefaultFrameFormat()))
	got, err = drop.Receive(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(got), 4)
	assert.LessOrEqual(t, len(got), 10)
	assert.Contains(t, bits.String(), got.String())
}

func TestLossyChannel_JunkLength(t *testing.T) {
	t.Parallel()

	ch := NewLossyChannel(LossConfig{Seed: 3, MaxLeadingJunk: 30, MaxTrailingJunk: 30})
	bits := bitseq.FromBytes([]byte{0xAA, 0x00})
	for range 20 {
		require.NoError(t, ch.Transmit(context.Background(), bits, framesignal.DefaultFrameFormat()))
		got, err := ch.Receive(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(got), 16)
		assert.LessOrEqual(t, len(got), 76)
	}
}

func TestLossyChannel_NoiseBelowThresholdIsHarmless(t *testing.T) {
	t.Parallel()

	ch := NewLossyChannel(LossConfig{Seed: 11, NoiseAmplitude: 126})
	bits := bitseq.FromBytes([]byte("noise"))
	require.NoError(t, ch.Transmit(context.Background(), bits, framesignal.DefaultFrameFormat()))
	got, err := ch.Receive(context.Background())
	require.NoError(t, err)
	assert.True(t, bits.Equal(got))
}

func TestLossyChannel_ClosedAndCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := NewLossyChannel(LossConfig{})
	require.ErrorIs(t, ch.Transmit(ctx, bitseq.MustParse("1"), framesignal.DefaultFrameFormat()), context.Canceled)

	require.NoError(t, ch.Close())
	err := ch.Transmit(context.Background(), bitseq.MustParse("1"), framesignal.DefaultFrameFormat())
	require.ErrorIs(t, err, framesignal.ErrChannelClosed)
	assert.True(t, framesignal.IsFatal(err))
}
