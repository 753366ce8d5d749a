// Package pacing releases one frame slot at a time at a fixed frame rate.
package pacing

import (
	"context"
	"errors"
	"time"

	"github.com/juju/ratelimit"
)

// ErrInvalidRate is returned for a frame rate of zero or below.
var ErrInvalidRate = errors.New("frame rate must be positive")

// Pacer hands out frame slots at FPS per second with no burst.
type Pacer struct {
	bucket *ratelimit.Bucket
	clock  ratelimit.Clock
	fps    int
}

// New creates a pacer. A nil clock uses wall time and makes Wait
// interruptible by its context.
func New(fps int, clock ratelimit.Clock) (*Pacer, error) {
	if fps <= 0 {
		return nil, ErrInvalidRate
	}
	var bucket *ratelimit.Bucket
	if clock == nil {
		bucket = ratelimit.NewBucketWithRate(float64(fps), 1)
	} else {
		bucket = ratelimit.NewBucketWithRateAndClock(float64(fps), 1, clock)
	}
	return &Pacer{bucket: bucket, clock: clock, fps: fps}, nil
}

// FPS returns the configured frame rate.
func (p *Pacer) FPS() int {
	return p.fps
}

// Slot returns the duration of one frame.
func (p *Pacer) Slot() time.Duration {
	return time.Second / time.Duration(p.fps)
}

// Wait blocks until the next frame slot.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := p.bucket.Take(1)
	if d <= 0 {
		return nil
	}
	if p.clock != nil {
		p.clock.Sleep(d)
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Sleep waits d on the pacer's clock.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration) error {
	if p.clock != nil {
		p.clock.Sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
