package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeGemini()
	if err := c.normalizeTranscribe(); err != nil {
		return err
	}
	c.normalizePacing()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok && strings.TrimSpace(value) != "" {
			c.Gemini.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.BaseURL = strings.TrimSpace(c.Gemini.BaseURL)
	if c.Gemini.TimeoutSeconds == 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeoutSeconds
	}
}

func (c *Config) normalizeTranscribe() error {
	c.Transcribe.DefaultModel = strings.TrimSpace(c.Transcribe.DefaultModel)
	if c.Transcribe.DefaultModel == "" {
		c.Transcribe.DefaultModel = defaultModelKey
	}
	c.Transcribe.SystemInstructionFile = strings.TrimSpace(c.Transcribe.SystemInstructionFile)
	if c.Transcribe.SystemInstructionFile == "" {
		c.Transcribe.SystemInstructionFile = defaultSystemInstructionFile
	}
	var err error
	if c.Transcribe.SystemInstructionFile, err = expandPath(c.Transcribe.SystemInstructionFile); err != nil {
		return fmt.Errorf("transcribe.system_instruction_file: %w", err)
	}
	if strings.TrimSpace(c.Transcribe.InstructionTemplate) == "" {
		c.Transcribe.InstructionTemplate = defaultInstructionTemplate
	}
	c.Transcribe.FailurePolicy = strings.ToLower(strings.TrimSpace(c.Transcribe.FailurePolicy))
	if c.Transcribe.FailurePolicy == "" {
		c.Transcribe.FailurePolicy = FailurePolicyAbort
	}
	return nil
}

func (c *Config) normalizePacing() {
	c.Pacing.Strategy = strings.ToLower(strings.TrimSpace(c.Pacing.Strategy))
	if c.Pacing.Strategy == "" {
		c.Pacing.Strategy = defaultPacingStrategy
	}
	if c.Pacing.Burst <= 0 {
		c.Pacing.Burst = defaultBurst
	}
	if c.Pacing.BackoffMaxSeconds == 0 {
		c.Pacing.BackoffMaxSeconds = defaultBackoffMaxSeconds
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Path = strings.TrimSpace(c.Ledger.Path)
	if c.Ledger.Path == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	var err error
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
