package config

import (
	"time"

	"letterscribe/internal/pacing"
	"letterscribe/internal/transcription"
)

// PacingSettings resolves the pacing policy for model. An unset cooldown is
// derived from the model's per-minute limit and falls back to five seconds
// when the limit is unknown; an unset token bucket rate uses the same limit.
func (c *Config) PacingSettings(model transcription.Model) pacing.Settings {
	interval := seconds(c.Pacing.CooldownSeconds)
	if interval == 0 {
		interval = model.MinInterval()
	}
	if interval == 0 {
		interval = seconds(defaultFallbackCooldown)
	}
	rpm := c.Pacing.RequestsPerMinute
	if rpm == 0 {
		rpm = float64(model.RequestsPerMinute)
	}
	if rpm == 0 {
		rpm = 60 / defaultFallbackCooldown
	}
	return pacing.Settings{
		Strategy:          c.Pacing.Strategy,
		Interval:          interval,
		RequestsPerMinute: rpm,
		Burst:             c.Pacing.Burst,
		BackoffBase:       seconds(c.Pacing.BackoffBaseSeconds),
		BackoffMax:        seconds(c.Pacing.BackoffMaxSeconds),
	}
}

func seconds(value float64) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value * float64(time.Second))
}
