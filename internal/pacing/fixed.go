package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fixed waits a constant interval before each request. A rate-limit hint
// longer than the interval replaces it for the next wait only.
type Fixed struct {
	interval time.Duration
	sleep    Sleeper

	mu      sync.Mutex
	pending time.Duration
}

// NewFixed returns a constant cooldown policy.
func NewFixed(interval time.Duration, opts ...Option) *Fixed {
	o := buildOptions(opts)
	if interval < 0 {
		interval = 0
	}
	return &Fixed{interval: interval, sleep: o.sleep}
}

// Wait blocks for the configured interval.
func (f *Fixed) Wait(ctx context.Context) error {
	f.mu.Lock()
	delay := f.interval
	if f.pending > delay {
		delay = f.pending
	}
	f.pending = 0
	f.mu.Unlock()
	return f.sleep(ctx, delay)
}

// Record remembers a rate-limit hint for the next wait.
func (f *Fixed) Record(outcome Outcome) {
	if !outcome.RateLimited {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = outcome.RetryAfter
	if f.pending <= 0 {
		f.pending = defaultRateLimitPause
	}
}

func (f *Fixed) String() string {
	return fmt.Sprintf("fixed %s", f.interval)
}
