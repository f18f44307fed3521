// Package logging carries request and event scoped loggers through contexts.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWithLogger returns a derived context that carries logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}

// Scope derives a logger from base with attrs and attaches it to ctx. A nil
// base falls back to slog.Default.
func Scope(ctx context.Context, base *slog.Logger, attrs ...any) (context.Context, *slog.Logger) {
	if base == nil {
		base = slog.Default()
	}
	logger := base
	if len(attrs) > 0 {
		logger = base.With(attrs...)
	}
	return ContextWithLogger(ctx, logger), logger
}
