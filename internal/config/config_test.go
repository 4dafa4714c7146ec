package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"letterscribe/internal/config"
	"letterscribe/internal/transcription"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolate(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(home, ".config", "letterscribe", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.TimeoutSeconds != 300 {
		t.Fatalf("unexpected timeout %d", cfg.Gemini.TimeoutSeconds)
	}
	if cfg.Transcribe.DefaultModel != "25fl" || cfg.Transcribe.FailurePolicy != config.FailurePolicyAbort {
		t.Fatalf("unexpected transcribe defaults %+v", cfg.Transcribe)
	}
	if cfg.Transcribe.RateLimitRetries != 0 {
		t.Fatal("expected no automatic rate-limit retries by default")
	}
	if cfg.Ledger.Path != filepath.Join(home, ".local", "share", "letterscribe", "ledger.db") {
		t.Fatalf("unexpected ledger path %q", cfg.Ledger.Path)
	}
	if !filepath.IsAbs(cfg.Transcribe.SystemInstructionFile) || filepath.Base(cfg.Transcribe.SystemInstructionFile) != "system_instruction.md" {
		t.Fatalf("unexpected system instruction path %q", cfg.Transcribe.SystemInstructionFile)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
}

func TestLoadFallsBackToGoogleAPIKey(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "google-key" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %q", cfg.Gemini.APIKey)
	}
}

func TestLoadProjectConfig(t *testing.T) {
	isolate(t)
	content := `
[gemini]
api_key = "file-key"

[transcribe]
default_model = "3fp"
failure_policy = "Continue"

[pacing]
strategy = "backoff"
cooldown_seconds = 2.5
`
	if err := os.WriteFile("letterscribe.toml", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "letterscribe.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Gemini.APIKey != "file-key" || cfg.Transcribe.DefaultModel != "3fp" {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if !cfg.ContinueOnError() {
		t.Fatal("expected continue policy after normalization")
	}
	model, _ := transcription.LookupModel("3fp")
	settings := cfg.PacingSettings(model)
	if settings.Strategy != "backoff" || settings.Interval != 2500*time.Millisecond {
		t.Fatalf("unexpected pacing settings %+v", settings)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[gemini]\napi_kee = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "api_kee") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown model":     func(c *config.Config) { c.Transcribe.DefaultModel = "3pp" },
		"bad policy":        func(c *config.Config) { c.Transcribe.FailurePolicy = "retry" },
		"negative retries":  func(c *config.Config) { c.Transcribe.RateLimitRetries = -1 },
		"template":          func(c *config.Config) { c.Transcribe.InstructionTemplate = "no placeholder" },
		"template verb":     func(c *config.Config) { c.Transcribe.InstructionTemplate = "%d pages %s" },
		"template two":      func(c *config.Config) { c.Transcribe.InstructionTemplate = "%s and %s" },
		"template trailing": func(c *config.Config) { c.Transcribe.InstructionTemplate = "pages %s 100%" },
		"strategy":          func(c *config.Config) { c.Pacing.Strategy = "jitter" },
		"negative cooldown": func(c *config.Config) { c.Pacing.CooldownSeconds = -1 },
		"max dimension":     func(c *config.Config) { c.Images.MaxDimension = -10 },
		"base url":          func(c *config.Config) { c.Gemini.BaseURL = "ftp://example.com" },
		"log level":         func(c *config.Config) { c.Logging.Level = "loud" },
	}
	for name, mutate := range cases {
		cfg := config.Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestPacingSettingsDerivesFromModel(t *testing.T) {
	cfg := config.Default()

	lite, _ := transcription.LookupModel("25fl")
	settings := cfg.PacingSettings(lite)
	if settings.Interval != 6*time.Second {
		t.Fatalf("expected 6s from 10 RPM, got %s", settings.Interval)
	}
	if settings.RequestsPerMinute != 10 {
		t.Fatalf("expected model RPM, got %v", settings.RequestsPerMinute)
	}

	pro, _ := transcription.LookupModel("25p")
	if got := cfg.PacingSettings(pro).Interval; got != 5*time.Second {
		t.Fatalf("expected 5s fallback for unknown limit, got %s", got)
	}
}

func TestSampleConfigParses(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestValidateAcceptsLiteralPercentInTemplate(t *testing.T) {
	cfg := config.Default()
	cfg.Transcribe.InstructionTemplate = "Transcribe 100%% of these pages: %s"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected literal %%%% to validate: %v", err)
	}
}
