// Package ratelimit paces outbound requests with a token bucket plus
// optional random delay, so bursts of queries do not arrive on a fixed beat.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// Limiter controls the rate and timing of operations, incorporating optional jitter.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	lim      *rate.Limiter // nil means unlimited
	jitter   float64       // 0.0 to 1.0
	interval time.Duration
}

// NewLimiter creates a limiter allowing rps requests per second with the
// given burst. Each Wait additionally sleeps a random [0, jitter*interval).
// If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, burst int, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	if rps <= 0 {
		return &Limiter{}
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		lim:      rate.NewLimiter(rate.Limit(rps), burst),
		jitter:   jitter,
		interval: time.Duration(float64(time.Second) / rps),
	}
}

// PerMinute is NewLimiter for a requests-per-minute budget.
func PerMinute(rpm int, burst int, jitter float64) *Limiter {
	return NewLimiter(float64(rpm)/60.0, burst, jitter)
}

// Wait blocks until it is time to perform the next operation, or until the
// context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.lim == nil {
		return ctx.Err()
	}
	if err := l.lim.Wait(ctx); err != nil {
		return err
	}
	if l.jitter <= 0 {
		return nil
	}

	extra := time.Duration(rand.Float64() * l.jitter * float64(l.interval))
	if extra <= 0 {
		return nil
	}
	t := time.NewTimer(extra)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlimited reports whether Wait never blocks.
func (l *Limiter) Unlimited() bool { return l.lim == nil }
