package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultBackoffMax = 5 * time.Minute

// Backoff waits base between requests and doubles the wait after every
// rate-limited outcome, capped at max. A success resets it to base.
type Backoff struct {
	base  time.Duration
	max   time.Duration
	sleep Sleeper

	mu      sync.Mutex
	current time.Duration
}

// NewBackoff returns an adaptive policy.
func NewBackoff(base, maxDelay time.Duration, opts ...Option) *Backoff {
	o := buildOptions(opts)
	if base < 0 {
		base = 0
	}
	if maxDelay <= 0 {
		maxDelay = defaultBackoffMax
	}
	if maxDelay < base {
		maxDelay = base
	}
	return &Backoff{base: base, max: maxDelay, sleep: o.sleep, current: base}
}

// Wait blocks for the current delay.
func (b *Backoff) Wait(ctx context.Context) error {
	return b.sleep(ctx, b.Current())
}

// Current returns the delay the next Wait will use.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Record adjusts the delay from a request outcome.
func (b *Backoff) Record(outcome Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !outcome.RateLimited {
		b.current = b.base
		return
	}
	next := b.current * 2
	if next <= 0 {
		next = time.Second
	}
	if outcome.RetryAfter > next {
		next = outcome.RetryAfter
	}
	if next > b.max {
		next = b.max
	}
	b.current = next
}

func (b *Backoff) String() string {
	return fmt.Sprintf("backoff %s..%s", b.base, b.max)
}
