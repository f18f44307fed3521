package http

import (
	"context"
	"log/slog"

	"github.com/example/calendar-assistant/internal/logging"
)

// LoggerFromContext extracts the request logger attached by RequestLogger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
