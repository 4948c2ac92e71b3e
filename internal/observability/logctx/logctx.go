// Package logctx carries a request-scoped observability.Logger on a context.
package logctx

import (
	"context"

	"github.com/pantrychef/pantry/internal/observability"
)

type loggerKey struct{}

// With stores the provided logger on the context for request-scoped logging.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithFields enriches the logger already on ctx (or fallback) and stores the result.
func WithFields(ctx context.Context, fallback observability.Logger, fields ...observability.Field) context.Context {
	base := FromOr(ctx, fallback)
	if base == nil {
		return ctx
	}
	return With(ctx, base.With(fields...))
}

// From retrieves a logger from the context if present.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr returns the context logger when available, otherwise falls back to the supplied logger.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	return fallback
}
