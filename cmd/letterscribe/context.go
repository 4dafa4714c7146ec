package main

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"letterscribe/internal/config"
	"letterscribe/internal/ledger"
	"letterscribe/internal/logging"
	"letterscribe/internal/transcription"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the run logger. Flags override the config file and
// verbose forces debug level.
func (c *commandContext) newLogger(cmd *cobra.Command, verbose bool) (*slog.Logger, io.Closer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	local := *cfg
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		local.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
	}
	if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
		local.Logging.Format = strings.TrimSpace(*c.logFormatFlag)
	}
	if verbose {
		local.Logging.Level = "debug"
	}
	return logging.NewFromConfig(&local, cmd.ErrOrStderr())
}

// resolveModel picks the --model flag value or the configured default.
func (c *commandContext) resolveModel(flagValue string) (transcription.Model, error) {
	key := strings.TrimSpace(flagValue)
	if key == "" {
		if cfg, err := c.ensureConfig(); err == nil {
			key = cfg.Transcribe.DefaultModel
		}
	}
	return transcription.LookupModel(key)
}

// openLedger returns nil when the ledger is disabled.
func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Ledger.Enabled {
		return nil, nil
	}
	return ledger.Open(cfg.Ledger.Path)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
