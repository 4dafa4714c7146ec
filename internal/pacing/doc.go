// Package pacing provides the cooldown policies that space sequential
// transcription requests.
//
// Fixed reproduces a constant sleep between groups, Backoff adapts to
// rate-limit signals, and TokenBucket enforces a sustained per-minute rate
// with golang.org/x/time/rate. All waits honor context cancellation.
package pacing
