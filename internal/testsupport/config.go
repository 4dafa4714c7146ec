package testsupport

import (
	"path/filepath"
	"testing"

	"letterscribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a validated config whose ledger and logs live in a
// per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKey = "test-key"
	cfg.Gemini.TimeoutSeconds = 5
	cfg.Transcribe.SystemInstructionFile = filepath.Join(base, "system_instruction.md")
	cfg.Ledger.Path = filepath.Join(base, "ledger.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithBaseURL points the Gemini client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(c *config.Config) { c.Gemini.BaseURL = url }
}

// WithLedgerDisabled turns off request recording.
func WithLedgerDisabled() ConfigOption {
	return func(c *config.Config) { c.Ledger.Enabled = false }
}
