// Package animate drives the counting-down display shown while a purchase
// deducts its cost, and serialises purchases that share one balance.
package animate

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/roach88/idle/internal/config"
)

// Clock is the time source of an Animator.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EaseOutCubic maps linear progress in [0,1] to a decelerating curve.
func EaseOutCubic(p float64) float64 {
	return 1 - math.Pow(1-p, 3)
}

// Animator interpolates a displayed balance from its old to its new value.
type Animator struct {
	Clock    Clock
	Delay    time.Duration
	Duration time.Duration
	Frame    time.Duration
}

// NewAnimator returns an Animator with the site's timing.
func NewAnimator(clock Clock) *Animator {
	if clock == nil {
		clock = RealClock{}
	}
	return &Animator{
		Clock:    clock,
		Delay:    config.DeductionDelay,
		Duration: config.DeductionDuration,
		Frame:    config.FrameInterval,
	}
}

// Deduct renders frames counting from down to from-cost and returns the
// exact target. Intermediate frames are rounded; the last frame is always
// the exact target, never the last interpolated value.
//
// If ctx ends early the remaining frames are skipped, but the final frame is
// still rendered: the deduction itself always completes.
func (a *Animator) Deduct(ctx context.Context, from, cost int64, frame func(display int64)) int64 {
	target := from - cost
	if frame == nil {
		frame = func(int64) {}
	}

	if err := a.Clock.Sleep(ctx, a.Delay); err != nil {
		frame(target)
		return target
	}

	start := a.Clock.Now()
	for {
		progress := 1.0
		if a.Duration > 0 {
			progress = math.Min(float64(a.Clock.Now().Sub(start))/float64(a.Duration), 1)
		}
		if progress >= 1 {
			break
		}
		frame(int64(math.Round(float64(from) - float64(cost)*EaseOutCubic(progress))))
		if err := a.Clock.Sleep(ctx, a.Frame); err != nil {
			break
		}
	}

	frame(target)
	return target
}

// ErrPurchaseInProgress is returned by spenders that find the Gate busy.
var ErrPurchaseInProgress = errors.New("purchase in progress")

// Gate admits one purchase at a time. Shop and lore purchases share a Gate
// because they spend from the same balance.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire claims the gate. Returns false if a purchase is in flight.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Busy reports whether a purchase is in flight.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
