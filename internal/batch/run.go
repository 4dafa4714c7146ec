package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"letterscribe/internal/ledger"
	"letterscribe/internal/logging"
	"letterscribe/internal/pacing"
	"letterscribe/internal/pagerange"
	"letterscribe/internal/plan"
	"letterscribe/internal/services"
	"letterscribe/internal/transcription"
)

const quotaWindow = 24 * time.Hour

// Run processes every group of p in order. On abort the returned Report is
// still populated and the error is an *AbortError.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (Report, error) {
	start := r.now()
	report := Report{RunID: r.runID, ModelKey: r.cfg.Model.Key}
	if p == nil {
		p = plan.New()
	}

	ctx = services.WithRunID(ctx, r.runID)
	ctx = services.WithModel(ctx, r.cfg.Model.Key)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch run starting",
		logging.Int("groups", p.Len()),
		logging.Int("skipped", len(r.cfg.Skip)),
		logging.String("model_name", r.cfg.Model.Name),
		logging.Bool("continue_on_error", r.cfg.ContinueOnError),
	)

	issued := false
	groups := p.Groups()
	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return r.finishAborted(logger, &report, start, groups[i:], group, err)
		}

		groupCtx := services.WithGroupIndex(ctx, group.Index)
		groupLogger := logging.WithContext(groupCtx, r.logger)

		if r.skipped(group.Index) {
			groupLogger.Info("group skipped",
				logging.String("pages", pagerange.Format(group.Pages)),
				logging.String(logging.FieldEventType, "group_skipped"),
			)
			report.Outcomes = append(report.Outcomes, GroupOutcome{Index: group.Index, Pages: group.Pages, Status: StatusSkipped})
			continue
		}

		outcome, err := r.processGroup(groupCtx, groupLogger, group, &issued)
		report.Requests += outcome.Attempts
		if err == nil {
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}

		if r.cfg.ContinueOnError && continuable(err) {
			outcome.Status = StatusFailed
			outcome.Err = err
			report.Outcomes = append(report.Outcomes, outcome)
			logging.WarnWithContext(groupLogger, "group failed, continuing", "group_failed",
				logging.String("pages", pagerange.Format(group.Pages)),
				logging.String("failure_kind", failureKind(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun the failed group once the cause is resolved"),
				logging.String(logging.FieldImpact, "no transcription written for this group"),
			)
			continue
		}

		report.Outcomes = append(report.Outcomes, GroupOutcome{
			Index:    group.Index,
			Pages:    group.Pages,
			Status:   StatusFailed,
			Attempts: outcome.Attempts,
			Elapsed:  outcome.Elapsed,
			Err:      err,
		})
		return r.finishAborted(logger, &report, start, groups[i+1:], group, err)
	}

	report.Elapsed = r.now().Sub(start)
	logger.Info("batch run finished",
		logging.Int("done", report.Count(StatusDone)),
		logging.Int("skipped", report.Count(StatusSkipped)),
		logging.Int("failed", report.Count(StatusFailed)),
		logging.Int("requests", report.Requests),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (r *Runner) finishAborted(logger *slog.Logger, report *Report, start time.Time, remaining []plan.Group, at plan.Group, err error) (Report, error) {
	for _, g := range remaining {
		report.Outcomes = append(report.Outcomes, GroupOutcome{Index: g.Index, Pages: g.Pages, Status: StatusNotAttempted})
	}
	abort := &AbortError{GroupIndex: at.Index, Pages: at.Pages, Kind: failureKind(err), Err: err}
	report.Abort = abort
	report.Elapsed = r.now().Sub(start)

	attrs := []logging.Attr{
		logging.Int(logging.FieldGroupIndex, at.Index),
		logging.String("pages", pagerange.Format(at.Pages)),
		logging.String("failure_kind", abort.Kind),
		logging.Error(err),
	}
	if hint := report.ResumeHint(); hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, "resume with "+hint))
	}
	logging.ErrorWithContext(logger, "batch run aborted", "run_aborted", attrs...)
	return *report, abort
}

// processGroup walks one group through cooling, quota, assembly, request and
// write. issued tracks whether any request was sent earlier in the run.
func (r *Runner) processGroup(ctx context.Context, logger *slog.Logger, group plan.Group, issued *bool) (GroupOutcome, error) {
	outcome := GroupOutcome{Index: group.Index, Pages: group.Pages}
	pages := pagerange.Format(group.Pages)

	if *issued {
		logger.Debug("cooling down before request")
		if err := r.pacer.Wait(ctx); err != nil {
			return outcome, err
		}
	}

	body, err := r.assembler.Assemble(group.Pages)
	if err != nil {
		return outcome, err
	}
	logger.Debug("payload assembled",
		logging.String("pages", pages),
		logging.Int("images", len(body.Images)),
		logging.Int("bytes", body.Size()),
	)

	request := transcription.Request{
		Model:             r.cfg.Model.Name,
		SystemInstruction: r.cfg.SystemInstruction,
		Payload:           body,
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := r.pacer.Wait(ctx); err != nil {
				return outcome, err
			}
		}
		if err := r.checkQuota(ctx, logger); err != nil {
			return outcome, err
		}

		*issued = true
		outcome.Attempts++
		started := r.now()
		result, err := r.client.Generate(ctx, request)
		elapsed := r.now().Sub(started)
		outcome.Elapsed += elapsed

		if err != nil {
			var remote *transcription.RemoteError
			if !errors.As(err, &remote) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return outcome, ctxErr
				}
				remote = &transcription.RemoteError{Kind: transcription.FailureTransport, Err: err}
				err = remote
			}
			r.pacer.Record(pacing.Outcome{RateLimited: remote.RateLimited(), RetryAfter: remote.RetryAfter})
			r.record(ctx, logger, group, ledger.Entry{
				Outcome:      string(remote.Kind),
				ErrorMessage: remote.Error(),
				Duration:     elapsed,
			})
			if r.cfg.Verbose && len(remote.Raw) > 0 {
				logger.Info("full response", logging.String("raw", string(remote.Raw)))
			}
			if remote.RateLimited() && attempt < r.cfg.RateLimitRetries {
				logging.WarnWithContext(logger, "rate limited, retrying", "rate_limited",
					logging.String("pages", pages),
					logging.Int("attempt", attempt+1),
					logging.Int("retries", r.cfg.RateLimitRetries),
					logging.Duration("retry_after", remote.RetryAfter),
					logging.String(logging.FieldErrorHint, "raise pacing.cooldown_seconds or pick another model"),
					logging.String(logging.FieldImpact, "group retried after the pacing delay"),
				)
				continue
			}
			return outcome, err
		}

		r.pacer.Record(pacing.Success)
		outcome.Usage = result.Usage
		return r.complete(ctx, logger, group, outcome, result, elapsed)
	}
}

func (r *Runner) complete(ctx context.Context, logger *slog.Logger, group plan.Group, outcome GroupOutcome, result transcription.Result, elapsed time.Duration) (GroupOutcome, error) {
	pages := pagerange.Format(group.Pages)
	if result.Blocked {
		logging.WarnWithContext(logger, "response flagged by safety filter", "safety_warning",
			logging.String("pages", pages),
			logging.String("finish_reason", result.FinishReason),
			logging.String(logging.FieldErrorHint, "review the transcription for truncation"),
			logging.String(logging.FieldImpact, "transcription may be incomplete"),
		)
	}

	path, err := r.writer.Write(r.cfg.Model.Key, group.Pages, result.Text)
	entry := ledger.Entry{
		Outcome:         ledger.OutcomeSuccess,
		PromptTokens:    result.Usage.PromptTokens,
		CandidateTokens: result.Usage.CandidateTokens,
		ThoughtTokens:   result.Usage.ThoughtTokens,
		TotalTokens:     result.Usage.TotalTokens,
		Duration:        elapsed,
		OutputPath:      path,
	}
	if err != nil {
		entry.Outcome = ledger.OutcomeWriteFailed
		entry.OutputPath = ""
		entry.ErrorMessage = err.Error()
		r.record(ctx, logger, group, entry)
		return outcome, fmt.Errorf("write transcription for pages %s: %w", pages, err)
	}
	r.record(ctx, logger, group, entry)
	outcome.Status = StatusDone
	outcome.OutputPath = path

	if r.cfg.SaveReasoning && len(result.Thoughts) > 0 {
		reasoningPath, err := r.writer.WriteReasoning(r.cfg.Model.Key, group.Pages, result.Thoughts)
		if err != nil {
			logging.WarnWithContext(logger, "reasoning sidecar not written", "reasoning_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "transcription kept, reasoning discarded"),
			)
		} else {
			outcome.ReasoningPath = reasoningPath
		}
	}

	logger.Info("transcription saved",
		logging.String("pages", pages),
		logging.String("output", path),
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.Int("attempts", outcome.Attempts),
	)
	if r.cfg.Verbose {
		logger.Info("token usage",
			logging.Int64("prompt_tokens", result.Usage.PromptTokens),
			logging.Int64("candidate_tokens", result.Usage.CandidateTokens),
			logging.Int64("thought_tokens", result.Usage.ThoughtTokens),
			logging.Int64("total_tokens", result.Usage.TotalTokens),
			logging.String("model_version", result.ModelVersion),
		)
		for i, thought := range result.Thoughts {
			logger.Info("reasoning", logging.Int("part", i+1), logging.String("text", thought))
		}
	}
	return outcome, nil
}

func (r *Runner) checkQuota(ctx context.Context, logger *slog.Logger) error {
	limit := r.cfg.Model.RequestsPerDay
	if r.ledger == nil || !r.cfg.EnforceDailyLimit || limit <= 0 {
		return nil
	}
	used, err := r.ledger.CountSince(ctx, r.cfg.Model.Key, r.now().Add(-quotaWindow))
	if err != nil {
		logging.WarnWithContext(logger, "daily quota check unavailable", "ledger_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "request sent without quota check"),
		)
		return nil
	}
	if used >= limit {
		return services.Wrap(services.ErrQuotaExhausted, "batch", "quota",
			fmt.Sprintf("%d of %d daily requests used for %s", used, limit, r.cfg.Model.Key), nil)
	}
	return nil
}

func (r *Runner) record(ctx context.Context, logger *slog.Logger, group plan.Group, entry ledger.Entry) {
	if r.ledger == nil {
		return
	}
	entry.RunID = r.runID
	entry.ModelKey = r.cfg.Model.Key
	entry.Model = r.cfg.Model.Name
	entry.GroupIndex = group.Index
	entry.Pages = group.Pages
	entry.CreatedAt = r.now()
	// The request already happened; a cancelled run must still count it.
	if _, err := r.ledger.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(logger, "ledger entry not recorded", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "daily quota accounting may undercount"),
		)
	}
}
