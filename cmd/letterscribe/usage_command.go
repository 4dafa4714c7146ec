package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"letterscribe/internal/ledger"
	"letterscribe/internal/pagerange"
	"letterscribe/internal/transcription"
)

func newUsageCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show recent requests and daily quota use per model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Request ledger is disabled (ledger.enabled = false).")
				return nil
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No requests recorded yet.")
			} else {
				fmt.Fprintln(out, renderUsageTable(entries))
			}

			since := time.Now().Add(-24 * time.Hour)
			rows := make([][]string, 0)
			for _, m := range transcription.Models() {
				used, err := store.CountSince(cmd.Context(), m.Key, since)
				if err != nil {
					return err
				}
				rows = append(rows, []string{m.Key, strconv.Itoa(used), limitLabel(m.RequestsPerDay)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Model", "Last 24h", "Daily limit"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent requests to show")
	return cmd
}

func renderUsageTable(entries []ledger.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		runID := e.RunID
		if len(runID) > 8 {
			runID = runID[:8]
		}
		tokens := ""
		if e.TotalTokens > 0 {
			tokens = strconv.FormatInt(e.TotalTokens, 10)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			runID,
			e.ModelKey,
			strconv.Itoa(e.GroupIndex),
			pagerange.Format(e.Pages),
			e.Outcome,
			tokens,
			e.Duration.Round(100 * time.Millisecond).String(),
		})
	}
	return renderTable(
		[]string{"Time", "Run", "Model", "Group", "Pages", "Outcome", "Tokens", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}
