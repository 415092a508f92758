package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID contextKey = "run_id"
	ContextKeyPage  contextKey = "page"
)

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// PageNumber converts a zero-based page index to the number shown to users
// in logs, errors and reports, which counts from 1.
func PageNumber(index int) int { return index + 1 }

// WithPage records the page index being processed.
func WithPage(ctx context.Context, page int) context.Context {
	return context.WithValue(ctx, ContextKeyPage, page)
}

// PageFromContext returns the page index, or -1 when unset.
func PageFromContext(ctx context.Context) int {
	if page, ok := ctx.Value(ContextKeyPage).(int); ok {
		return page
	}
	return -1
}
