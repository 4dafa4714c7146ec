package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	groupIndexKey contextKey = "group_index"
	modelKey      contextKey = "model"
)

// WithRunID annotates context with the batch run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithGroupIndex annotates context with the zero-based group index being processed.
func WithGroupIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, groupIndexKey, index)
}

// GroupIndexFromContext extracts the group index if present.
func GroupIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(groupIndexKey).(int)
	return v, ok
}

// WithModel annotates context with the model shorthand key.
func WithModel(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, modelKey, key)
}

// ModelFromContext returns the model shorthand key if present.
func ModelFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(modelKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
