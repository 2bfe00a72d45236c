// Package ratelimit implements a simple token-bucket limiter used by every
// source client to stay within its documented request budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter. It is safe for concurrent use and
// is meant to be created once per source and shared by every caller of that
// source's client, matching the "process-global singleton keyed by source"
// policy.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	max        float64
	refillRate float64 // tokens per second
	last       time.Time
	now        func() time.Time
}

// New creates a limiter allowing rps requests per second, bursting up to
// rps tokens. If polite is true the budget is widened by 50%, mirroring the
// "polite pool" bump several APIs grant when a contact email is supplied.
func New(rps float64, polite bool) *Limiter {
	if polite {
		rps *= 1.5
	}
	if rps <= 0 {
		rps = 1
	}
	return &Limiter{
		tokens:     rps,
		max:        rps,
		refillRate: rps,
		last:       time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.last).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.max {
		l.tokens = l.max
	}
	l.last = now
}
