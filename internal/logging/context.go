package logging

import (
	"context"
	"log/slog"

	"letterscribe/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID correlates every line of one transcribe run.
	FieldRunID = "run_id"
	// FieldGroupIndex is the zero-based position of a group in the plan.
	FieldGroupIndex = "group_index"
	// FieldModel is the model shorthand key.
	FieldModel = "model"
	// FieldEventType classifies a line for filtering (group_skipped, request_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if model, ok := services.ModelFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldModel, model))
	}
	if idx, ok := services.GroupIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldGroupIndex, idx))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
