package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Gemini contains connection settings for the Generative Language API.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcribe contains batch run settings.
type Transcribe struct {
	DefaultModel          string `toml:"default_model"`
	SystemInstructionFile string `toml:"system_instruction_file"`
	// InstructionTemplate must contain one %s for the ordered page list.
	InstructionTemplate string `toml:"instruction_template"`
	FailurePolicy       string `toml:"failure_policy"`
	RateLimitRetries    int    `toml:"rate_limit_retries"`
	SaveReasoning       bool   `toml:"save_reasoning"`
}

// Pacing contains the cooldown policy between requests.
type Pacing struct {
	Strategy string `toml:"strategy"`
	// CooldownSeconds of zero derives the interval from the model's per-minute limit.
	CooldownSeconds    float64 `toml:"cooldown_seconds"`
	RequestsPerMinute  float64 `toml:"requests_per_minute"`
	Burst              int     `toml:"burst"`
	BackoffBaseSeconds float64 `toml:"backoff_base_seconds"`
	BackoffMaxSeconds  float64 `toml:"backoff_max_seconds"`
}

// Images contains payload image handling.
type Images struct {
	// MaxDimension downscales pages whose longest side exceeds it; zero sends originals.
	MaxDimension int `toml:"max_dimension"`
}

// Ledger contains the request history database settings.
type Ledger struct {
	Enabled           bool   `toml:"enabled"`
	Path              string `toml:"path"`
	EnforceDailyLimit bool   `toml:"enforce_daily_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// Dir receives a per-run log file when set.
	Dir string `toml:"dir"`
}

// Config encapsulates all configuration values for letterscribe.
//
// Configuration sections by subsystem:
//   - Gemini: API credentials, endpoint and request timeout
//   - Transcribe: model selection, instructions and failure policy
//   - Pacing: cooldown strategy between requests
//   - Images: optional downscaling of page images
//   - Ledger: SQLite request history and daily quota enforcement
//   - Logging: log format, level and file output
type Config struct {
	Gemini     Gemini     `toml:"gemini"`
	Transcribe Transcribe `toml:"transcribe"`
	Pacing     Pacing     `toml:"pacing"`
	Images     Images     `toml:"images"`
	Ledger     Ledger     `toml:"ledger"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ContinueOnError reports whether a failed group should be recorded and skipped
// instead of aborting the run.
func (c *Config) ContinueOnError() bool {
	return c.Transcribe.FailurePolicy == FailurePolicyContinue
}
