package pacing_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"letterscribe/internal/pacing"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestFixedWaitsInterval(t *testing.T) {
	clock := newFakeClock()
	p := pacing.NewFixed(5*time.Second, pacing.WithSleeper(clock.Sleep))

	for i := 0; i < 2; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	p.Record(pacing.Outcome{RateLimited: true, RetryAfter: 30 * time.Second})
	_ = p.Wait(context.Background())
	p.Record(pacing.Success)
	_ = p.Wait(context.Background())

	want := []time.Duration{5 * time.Second, 5 * time.Second, 30 * time.Second, 5 * time.Second}
	if !reflect.DeepEqual(clock.sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestFixedShortHintKeepsInterval(t *testing.T) {
	clock := newFakeClock()
	p := pacing.NewFixed(5*time.Second, pacing.WithSleeper(clock.Sleep))
	p.Record(pacing.Outcome{RateLimited: true, RetryAfter: time.Second})
	_ = p.Wait(context.Background())
	if clock.sleeps[0] != 5*time.Second {
		t.Fatalf("expected interval to win, got %s", clock.sleeps[0])
	}
}

func TestBackoffDoublesAndResets(t *testing.T) {
	clock := newFakeClock()
	p := pacing.NewBackoff(2*time.Second, 10*time.Second, pacing.WithSleeper(clock.Sleep))

	p.Record(pacing.Outcome{RateLimited: true})
	if got := p.Current(); got != 4*time.Second {
		t.Fatalf("after first 429 current = %s", got)
	}
	p.Record(pacing.Outcome{RateLimited: true})
	p.Record(pacing.Outcome{RateLimited: true})
	if got := p.Current(); got != 10*time.Second {
		t.Fatalf("expected cap at 10s, got %s", got)
	}
	p.Record(pacing.Success)
	if got := p.Current(); got != 2*time.Second {
		t.Fatalf("expected reset to base, got %s", got)
	}
	p.Record(pacing.Outcome{RateLimited: true, RetryAfter: 7 * time.Second})
	if got := p.Current(); got != 7*time.Second {
		t.Fatalf("expected retry hint to win, got %s", got)
	}
	_ = p.Wait(context.Background())
	if clock.sleeps[0] != 7*time.Second {
		t.Fatalf("Wait slept %s", clock.sleeps[0])
	}
}

func TestTokenBucketSpacesRequests(t *testing.T) {
	clock := newFakeClock()
	p := pacing.NewTokenBucket(60, 1, pacing.WithSleeper(clock.Sleep), pacing.WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
	}
	want := []time.Duration{0, time.Second, time.Second}
	if !reflect.DeepEqual(clock.sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestTokenBucketHonorsRetryWindow(t *testing.T) {
	clock := newFakeClock()
	p := pacing.NewTokenBucket(60, 1, pacing.WithSleeper(clock.Sleep), pacing.WithClock(clock.Now))

	_ = p.Wait(context.Background())
	p.Record(pacing.Outcome{RateLimited: true, RetryAfter: 10 * time.Second})
	clock.sleeps = nil
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	want := []time.Duration{10 * time.Second, 0}
	if !reflect.DeepEqual(clock.sleeps, want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policies := []pacing.Policy{
		pacing.NewFixed(time.Hour),
		pacing.NewBackoff(time.Hour, 2*time.Hour),
	}
	for _, p := range policies {
		if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("%T: expected context.Canceled, got %v", p, err)
		}
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	cases := []struct {
		settings pacing.Settings
		want     string
	}{
		{pacing.Settings{Interval: time.Second}, "*pacing.Fixed"},
		{pacing.Settings{Strategy: "backoff", Interval: time.Second}, "*pacing.Backoff"},
		{pacing.Settings{Strategy: "token_bucket", RequestsPerMinute: 10}, "*pacing.TokenBucket"},
	}
	for _, tc := range cases {
		p, err := pacing.New(tc.settings)
		if err != nil {
			t.Fatalf("New(%+v) returned error: %v", tc.settings, err)
		}
		if got := reflect.TypeOf(p).String(); got != tc.want {
			t.Fatalf("New(%+v) = %s, want %s", tc.settings, got, tc.want)
		}
	}
	if _, err := pacing.New(pacing.Settings{Strategy: "token_bucket"}); err == nil {
		t.Fatal("expected error without requests per minute")
	}
	if _, err := pacing.New(pacing.Settings{Strategy: "jitter"}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}
