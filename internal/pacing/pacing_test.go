package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	simtest "github.com/patte/go-framesignal/internal/testing"
)

func TestNew_InvalidRate(t *testing.T) {
	t.Parallel()

	_, err := New(0, nil)
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestPacer_OneSlotPerFrame(t *testing.T) {
	t.Parallel()

	clock := simtest.NewFakeClock(time.Unix(1000, 0))
	p, err := New(10, clock)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, p.Slot())
	assert.Equal(t, 10, p.FPS())

	start := clock.Now()
	for range 11 {
		require.NoError(t, p.Wait(context.Background()))
	}
	// first slot is free, the next ten are 100ms apart
	assert.Equal(t, time.Second, clock.Now().Sub(start))
}

func TestPacer_CancelledContext(t *testing.T) {
	t.Parallel()

	p, err := New(1, nil)
	require.NoError(t, err)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	require.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPacer_Sleep(t *testing.T) {
	t.Parallel()

	clock := simtest.NewFakeClock(time.Unix(0, 0))
	p, err := New(30, clock)
	require.NoError(t, err)
	require.NoError(t, p.Sleep(context.Background(), time.Minute))
	assert.Equal(t, time.Unix(60, 0), clock.Now())
}
