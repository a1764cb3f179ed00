package poll

import (
	"context"
	"time"
)

// Indefinite makes Delay block until interrupted or the context ends.
const Indefinite time.Duration = -1

// Delayer pauses between samples. Delay returns canceled == true when an
// external skip-wait signal interrupted the pause before it finished.
type Delayer interface {
	Delay(ctx context.Context, d time.Duration) (canceled bool, err error)
}

// SleepDelayer sleeps on the wall clock. A receive on Interrupt cancels
// the current pause; a nil Interrupt makes pauses uninterruptible.
type SleepDelayer struct {
	Interrupt <-chan struct{}
}

func (s SleepDelayer) Delay(ctx context.Context, d time.Duration) (bool, error) {
	if d == 0 {
		return false, ctx.Err()
	}
	var timeout <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-s.Interrupt:
		return true, nil
	case <-timeout:
		return false, nil
	}
}

// DelayFunc adapts a function to the Delayer interface.
type DelayFunc func(ctx context.Context, d time.Duration) (bool, error)

func (f DelayFunc) Delay(ctx context.Context, d time.Duration) (bool, error) {
	return f(ctx, d)
}
