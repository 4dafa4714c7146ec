package config

const (
	defaultConfigPath            = "~/.config/letterscribe/config.toml"
	projectConfigName            = "letterscribe.toml"
	defaultGeminiTimeoutSeconds  = 300
	defaultModelKey              = "25fl"
	defaultSystemInstructionFile = "system_instruction.md"
	defaultInstructionTemplate   = "Transcribe these letter pages, in the following order: %s"
	defaultPacingStrategy        = "fixed"
	defaultFallbackCooldown      = 5.0
	defaultBackoffMaxSeconds     = 300.0
	defaultBurst                 = 1
	defaultLedgerPath            = "~/.local/share/letterscribe/ledger.db"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Failure policies for a group whose request fails.
const (
	FailurePolicyAbort    = "abort"
	FailurePolicyContinue = "continue"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Gemini: Gemini{
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Transcribe: Transcribe{
			DefaultModel:          defaultModelKey,
			SystemInstructionFile: defaultSystemInstructionFile,
			InstructionTemplate:   defaultInstructionTemplate,
			FailurePolicy:         FailurePolicyAbort,
		},
		Pacing: Pacing{
			Strategy:          defaultPacingStrategy,
			Burst:             defaultBurst,
			BackoffMaxSeconds: defaultBackoffMaxSeconds,
		},
		Ledger: Ledger{
			Enabled:           true,
			Path:              defaultLedgerPath,
			EnforceDailyLimit: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
