package pacing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket spaces requests with a token bucket refilled at a per-minute
// rate. A rate-limited outcome blocks all requests until the hinted retry
// time has passed.
type TokenBucket struct {
	limiter *rate.Limiter
	perMin  float64
	sleep   Sleeper
	now     func() time.Time

	mu      sync.Mutex
	retryAt time.Time
}

// NewTokenBucket returns a token bucket policy allowing requestsPerMinute
// sustained requests with the given burst.
func NewTokenBucket(requestsPerMinute float64, burst int, opts ...Option) *TokenBucket {
	o := buildOptions(opts)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(requestsPerMinute/60), burst)
	return &TokenBucket{limiter: limiter, perMin: requestsPerMinute, sleep: o.sleep, now: o.now}
}

// Wait blocks until the retry window has passed and a token is available.
func (t *TokenBucket) Wait(ctx context.Context) error {
	now := t.now()
	t.mu.Lock()
	retryAt := t.retryAt
	t.mu.Unlock()

	if now.Before(retryAt) {
		if err := t.sleep(ctx, retryAt.Sub(now)); err != nil {
			return err
		}
		now = retryAt
	}

	reservation := t.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return errors.New("pacing: token bucket cannot satisfy request")
	}
	if err := t.sleep(ctx, reservation.DelayFrom(now)); err != nil {
		reservation.CancelAt(now)
		return err
	}
	return nil
}

// Record sets the retry window after a rate-limited response.
func (t *TokenBucket) Record(outcome Outcome) {
	if !outcome.RateLimited {
		return
	}
	pause := outcome.RetryAfter
	if pause <= 0 {
		pause = defaultRateLimitPause
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retryAt = t.now().Add(pause)
}

func (t *TokenBucket) String() string {
	return fmt.Sprintf("token_bucket %.1f/min burst %d", t.perMin, t.limiter.Burst())
}
