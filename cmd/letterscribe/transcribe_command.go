package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"letterscribe/internal/batch"
	"letterscribe/internal/logging"
	"letterscribe/internal/output"
	"letterscribe/internal/pacing"
	"letterscribe/internal/pagerange"
	"letterscribe/internal/payload"
	"letterscribe/internal/plan"
	"letterscribe/internal/project"
	"letterscribe/internal/services"
	"letterscribe/internal/services/gemini"
)

type transcribeOptions struct {
	pagesFile       string
	skip            []string
	model           string
	verbose         bool
	continueOnError bool
	cooldown        time.Duration
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <pdf> [flags]",
		Short: "Send each page group of a prepared PDF to Gemini and save the transcriptions",
		Long: `Transcribe reads pages_<name>.txt beside the PDF, one page range per line,
and sends the matching images from temp_<name>/ to the selected model. Each
group is written to temp_<name>/ocr_<model>_pages_NN_NN.md.

Groups are numbered from 0 in file order. Use --skip to leave groups out,
either as --skip 0,2 or --skip 0 2.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			skip, err := parseSkip(opts.skip, args[1:], cmd.Flags().Changed("skip"))
			if err != nil {
				return err
			}
			return runTranscribe(cmd, ctx, args[0], skip, opts)
		},
	}

	cmd.Flags().StringVar(&opts.pagesFile, "pages-file", "", "Group plan to use instead of pages_<name>.txt")
	cmd.Flags().StringSliceVar(&opts.skip, "skip", nil, "Zero-based group indices to skip (0,2 or 0 2)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model key (see `letterscribe models`)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging, token usage and reasoning output")
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Record failed groups and keep going")
	cmd.Flags().DurationVar(&opts.cooldown, "cooldown", 0, "Fixed delay between requests (overrides pacing config)")
	return cmd
}

// parseSkip accepts comma or whitespace separated indices. Extra positional
// arguments are only allowed as the tail of a space separated --skip list.
func parseSkip(values []string, extra []string, skipSet bool) ([]int, error) {
	if len(extra) > 0 && !skipSet {
		return nil, fmt.Errorf("unexpected arguments %v (only one PDF may be given)", extra)
	}
	var indices []int
	for _, raw := range append(append([]string(nil), values...), extra...) {
		for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			idx, err := strconv.Atoi(token)
			if err != nil || idx < 0 {
				return nil, services.Wrap(services.ErrConfiguration, "cli", "skip", fmt.Sprintf("invalid group index %q", token), nil)
			}
			indices = append(indices, idx)
		}
	}
	return indices, nil
}

func runTranscribe(cmd *cobra.Command, ctx *commandContext, pdfPath string, skip []int, opts transcribeOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	model, err := ctx.resolveModel(opts.model)
	if err != nil {
		return err
	}

	layout, err := project.Resolve(pdfPath, opts.pagesFile)
	if err != nil {
		return err
	}
	if err := layout.Check(); err != nil {
		return err
	}
	groupPlan, err := plan.Load(layout.PlanPath)
	if err != nil {
		return err
	}
	instruction, err := os.ReadFile(cfg.Transcribe.SystemInstructionFile)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "system instruction",
			fmt.Sprintf("read %s", cfg.Transcribe.SystemInstructionFile), err)
	}

	logger, logCloser, err := ctx.newLogger(cmd, opts.verbose)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	for _, idx := range skip {
		if idx >= groupPlan.Len() {
			logging.WarnWithContext(logger, "skip index beyond plan", "skip_out_of_range",
				logging.Int(logging.FieldGroupIndex, idx),
				logging.Int("groups", groupPlan.Len()),
				logging.String(logging.FieldImpact, "index ignored"),
			)
		}
	}

	lock, err := layout.Lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("project lock not released", logging.Error(err))
		}
	}()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	saveReasoning := cfg.Transcribe.SaveReasoning
	client, err := gemini.NewClient(runCtx, gemini.Config{
		APIKey:          cfg.Gemini.APIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           model.Name,
		TimeoutSeconds:  cfg.Gemini.TimeoutSeconds,
		IncludeThoughts: opts.verbose || saveReasoning,
	})
	if err != nil {
		return err
	}

	settings := cfg.PacingSettings(model)
	if opts.cooldown > 0 {
		settings.Strategy = pacing.StrategyFixed
		settings.Interval = opts.cooldown
	}
	pacer, err := pacing.New(settings)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "cli", "pacing", "", err)
	}

	deps := batch.Deps{
		Assembler: payload.NewAssembler(layout.ImageDir,
			payload.WithInstructionTemplate(cfg.Transcribe.InstructionTemplate),
			payload.WithMaxDimension(cfg.Images.MaxDimension),
		),
		Client: client,
		Pacer:  pacer,
		Writer: output.NewWriter(layout.OutputDir),
		Logger: logger,
	}
	store, err := ctx.openLedger()
	if err != nil {
		logging.WarnWithContext(logger, "request ledger unavailable", "ledger_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "requests are not recorded and the daily limit is not enforced"),
		)
	} else if store != nil {
		defer store.Close()
		deps.Ledger = store
	}

	runner, err := batch.NewRunner(batch.Config{
		Model:             model,
		SystemInstruction: string(instruction),
		Skip:              batch.SkipSet(skip),
		ContinueOnError:   opts.continueOnError || cfg.ContinueOnError(),
		RateLimitRetries:  cfg.Transcribe.RateLimitRetries,
		Verbose:           opts.verbose,
		SaveReasoning:     saveReasoning,
		EnforceDailyLimit: cfg.Ledger.EnforceDailyLimit,
	}, deps)
	if err != nil {
		return err
	}

	logger.Info("transcription starting",
		logging.String("pdf", layout.PDFPath),
		logging.String("plan", layout.PlanPath),
		logging.String(logging.FieldModel, model.Key),
		logging.String(logging.FieldRunID, runner.RunID()),
		logging.String("pacing", settings.Strategy),
	)

	report, runErr := runner.Run(runCtx, groupPlan)
	printRunSummary(cmd, report)
	if runErr != nil {
		if runCtx.Err() != nil && cmd.Context().Err() == nil {
			return fmt.Errorf("interrupted: %w", runErr)
		}
		return runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d groups failed; rerun with %s", len(failed), groupPlan.Len(), report.ResumeHint())
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, report batch.Report) {
	if len(report.Outcomes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No groups to transcribe.")
		return
	}
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		detail := o.OutputPath
		if o.Err != nil {
			detail = o.Err.Error()
		}
		elapsed := ""
		if o.Elapsed > 0 {
			elapsed = o.Elapsed.Round(100 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			strconv.Itoa(o.Index),
			pagerange.Format(o.Pages),
			string(o.Status),
			elapsed,
			detail,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Pages", "Status", "Elapsed", "Output"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	if hint := report.ResumeHint(); hint != "" {
		fmt.Fprintf(out, "Resume with: letterscribe transcribe <pdf> %s\n", hint)
	}
}
