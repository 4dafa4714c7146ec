package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"letterscribe/internal/transcription"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "models",
		Short:       "List supported model keys",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			defaultKey := transcription.DefaultModelKey
			// Config is optional here; a broken file should not hide the list.
			if cfg, err := ctx.ensureConfig(); err == nil && cfg.Transcribe.DefaultModel != "" {
				defaultKey = cfg.Transcribe.DefaultModel
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderModelsTable(transcription.Models(), defaultKey))
			return nil
		},
	}
}

func renderModelsTable(models []transcription.Model, defaultKey string) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{
			m.Key,
			m.Name,
			limitLabel(m.RequestsPerMinute),
			limitLabel(m.RequestsPerDay),
			yesNo(m.Key == defaultKey),
			m.Note,
		})
	}
	return renderTable(
		[]string{"Key", "Model", "RPM", "RPD", "Default", "Note"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func limitLabel(value int) string {
	if value <= 0 {
		return "-"
	}
	return strconv.Itoa(value)
}
