package pacing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy names accepted by New.
const (
	StrategyFixed       = "fixed"
	StrategyBackoff     = "backoff"
	StrategyTokenBucket = "token_bucket"
)

const defaultRateLimitPause = 60 * time.Second

// Outcome reports the result of one remote request to a Policy.
type Outcome struct {
	RateLimited bool
	// RetryAfter is the server hint attached to a rate-limited response.
	RetryAfter time.Duration
}

// Success is the outcome of a request that returned a transcription or a
// non rate-limit failure.
var Success = Outcome{}

// Policy spaces consecutive remote requests. The runner calls Wait before
// every request except the first of a run and reports each result through
// Record.
type Policy interface {
	Wait(ctx context.Context) error
	Record(outcome Outcome)
}

// Settings selects and parameterizes a policy.
type Settings struct {
	Strategy          string
	Interval          time.Duration
	RequestsPerMinute float64
	Burst             int
	BackoffBase       time.Duration
	BackoffMax        time.Duration
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option customizes a policy.
type Option func(*options)

type options struct {
	sleep Sleeper
	now   func() time.Time
}

// WithSleeper overrides how waits are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(o *options) {
		if sleeper != nil {
			o.sleep = sleeper
		}
	}
}

// WithClock overrides the time source used by the token bucket.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{sleep: sleepContext, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the policy named by s.Strategy.
func New(s Settings, opts ...Option) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s.Strategy)) {
	case "", StrategyFixed:
		return NewFixed(s.Interval, opts...), nil
	case StrategyBackoff:
		base := s.BackoffBase
		if base <= 0 {
			base = s.Interval
		}
		return NewBackoff(base, s.BackoffMax, opts...), nil
	case StrategyTokenBucket:
		if s.RequestsPerMinute <= 0 {
			return nil, errors.New("pacing: token_bucket requires requests_per_minute > 0")
		}
		return NewTokenBucket(s.RequestsPerMinute, s.Burst, opts...), nil
	default:
		return nil, fmt.Errorf("pacing: unknown strategy %q", s.Strategy)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
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
