package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"letterscribe/internal/preflight"
	"letterscribe/internal/project"
	"letterscribe/internal/services/gemini"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var pagesFile string
	var modelKey string
	var checkAPI bool

	cmd := &cobra.Command{
		Use:   "status <pdf>",
		Short: "Check that a project is ready to transcribe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			model, err := ctx.resolveModel(modelKey)
			if err != nil {
				return err
			}
			layout, err := project.Resolve(args[0], pagesFile)
			if err != nil {
				return err
			}

			input := preflight.Input{
				Layout: layout,
				Model:  model,
				APIKey: cfg.Gemini.APIKey,
			}
			if cfg.Ledger.Enabled {
				input.LedgerDir = filepath.Dir(cfg.Ledger.Path)
			}
			if checkAPI && cfg.Gemini.APIKey != "" {
				client, err := gemini.NewClient(cmd.Context(), gemini.Config{
					APIKey:         cfg.Gemini.APIKey,
					BaseURL:        cfg.Gemini.BaseURL,
					Model:          model.Name,
					TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
				})
				if err != nil {
					return err
				}
				input.Checker = client
			}

			results := preflight.RunAll(cmd.Context(), input)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader(fmt.Sprintf("Project %s", layout.Name), colorize)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			lines = append(lines, quotaStatusLine(cmd, ctx, model.Key, model.RequestsPerDay, colorize))
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pagesFile, "pages-file", "", "Group plan to use instead of pages_<name>.txt")
	cmd.Flags().StringVarP(&modelKey, "model", "m", "", "Model key to check")
	cmd.Flags().BoolVar(&checkAPI, "check-api", false, "Contact the API to verify the key and model")
	return cmd
}

func quotaStatusLine(cmd *cobra.Command, ctx *commandContext, modelKey string, limit int, colorize bool) string {
	const label = "Daily requests"
	store, err := ctx.openLedger()
	if err != nil {
		return renderStatusLine(label, statusWarn, fmt.Sprintf("ledger unavailable (%v)", err), colorize)
	}
	if store == nil {
		return renderStatusLine(label, statusInfo, "ledger disabled", colorize)
	}
	defer store.Close()
	used, err := store.CountSince(cmd.Context(), modelKey, time.Now().Add(-24*time.Hour))
	if err != nil {
		return renderStatusLine(label, statusWarn, err.Error(), colorize)
	}
	if limit <= 0 {
		return renderStatusLine(label, statusInfo, fmt.Sprintf("%d sent to %s in the last 24h (no known limit)", used, modelKey), colorize)
	}
	kind := statusOK
	switch {
	case used >= limit:
		kind = statusError
	case used*4 >= limit*3:
		kind = statusWarn
	}
	return renderStatusLine(label, kind, fmt.Sprintf("%d of %d used for %s in the last 24h", used, limit, modelKey), colorize)
}
