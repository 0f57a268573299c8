package ratelimit

import (
	"context"
	"time"
)

// Sleeper suspends the caller.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Pause is the fixed post-page sleep. There is no jitter and no adaptation.
type Pause struct {
	d       time.Duration
	sleeper Sleeper
}

// NewPause returns a Pause of d using sleeper.
func NewPause(d time.Duration, sleeper Sleeper) *Pause {
	return &Pause{d: d, sleeper: sleeper}
}

// Duration is the configured pause length.
func (p *Pause) Duration() time.Duration {
	return p.d
}

// Throttle sleeps for the configured duration.
func (p *Pause) Throttle(ctx context.Context) error {
	return p.sleeper.Sleep(ctx, p.d)
}
