package config

import (
	"errors"
	"fmt"
	"strings"

	"letterscribe/internal/pacing"
	"letterscribe/internal/transcription"
)

// Validate ensures the configuration is usable. A missing API key is not an
// error here; commands that contact the service check it through preflight.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateTranscribe(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if c.Images.MaxDimension < 0 {
		return errors.New("images.max_dimension must be >= 0")
	}
	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path must be set when ledger.enabled is true")
	}
	return c.validateLogging()
}

func (c *Config) validateGemini() error {
	if c.Gemini.TimeoutSeconds < 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	if c.Gemini.BaseURL != "" && !strings.HasPrefix(c.Gemini.BaseURL, "http://") && !strings.HasPrefix(c.Gemini.BaseURL, "https://") {
		return fmt.Errorf("gemini.base_url must be an http(s) URL, got %q", c.Gemini.BaseURL)
	}
	return nil
}

func (c *Config) validateTranscribe() error {
	if _, err := transcription.LookupModel(c.Transcribe.DefaultModel); err != nil {
		return fmt.Errorf("transcribe.default_model: %w", err)
	}
	if err := checkInstructionTemplate(c.Transcribe.InstructionTemplate); err != nil {
		return fmt.Errorf("transcribe.instruction_template: %w", err)
	}
	switch c.Transcribe.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyContinue:
	default:
		return fmt.Errorf("transcribe.failure_policy must be %q or %q, got %q", FailurePolicyAbort, FailurePolicyContinue, c.Transcribe.FailurePolicy)
	}
	if c.Transcribe.RateLimitRetries < 0 {
		return errors.New("transcribe.rate_limit_retries must be >= 0")
	}
	return nil
}

func (c *Config) validatePacing() error {
	switch c.Pacing.Strategy {
	case pacing.StrategyFixed, pacing.StrategyBackoff, pacing.StrategyTokenBucket:
	default:
		return fmt.Errorf("pacing.strategy must be one of fixed, backoff, token_bucket; got %q", c.Pacing.Strategy)
	}
	if c.Pacing.CooldownSeconds < 0 {
		return errors.New("pacing.cooldown_seconds must be >= 0")
	}
	if c.Pacing.RequestsPerMinute < 0 {
		return errors.New("pacing.requests_per_minute must be >= 0")
	}
	if c.Pacing.BackoffBaseSeconds < 0 || c.Pacing.BackoffMaxSeconds < 0 {
		return errors.New("pacing backoff durations must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error; got %q", c.Logging.Level)
	}
}

// checkInstructionTemplate requires exactly one %s verb. %% is allowed as a
// literal percent sign; any other verb would render as %!x(string=...).
func checkInstructionTemplate(template string) error {
	placeholders := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 >= len(template) {
			return errors.New("trailing % without a verb")
		}
		i++
		switch template[i] {
		case '%':
		case 's':
			placeholders++
		default:
			return fmt.Errorf("unsupported verb %%%c (only %%s and %%%% are allowed)", template[i])
		}
	}
	if placeholders != 1 {
		return fmt.Errorf("must contain exactly one %%s placeholder, found %d", placeholders)
	}
	return nil
}
