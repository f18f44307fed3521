package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/calendar-assistant/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNoEvents):
		return "no_events"
	case errors.Is(err, ErrWrongChannel):
		return "wrong_channel"
	case errors.Is(err, ErrNothingInProgress):
		return "nothing_in_progress"
	case errors.Is(err, ErrNotAwaitingInput):
		return "not_awaiting_input"
	case errors.Is(err, ErrAuthorizationRequired):
		return "authorization_required"
	case errors.Is(err, ErrAuthorizationUnavailable):
		return "authorization_unavailable"
	case errors.Is(err, ErrAuthorizationTimeout):
		return "authorization_timeout"
	case errors.Is(err, ErrAuthorizationFailed):
		return "authorization_failed"
	case errors.Is(err, ErrUnknownCorrelation):
		return "unknown_correlation"
	case errors.Is(err, ErrDirectMessageRefused):
		return "direct_message_refused"
	case errors.Is(err, ErrExtractionFailed):
		return "extraction"
	case errors.Is(err, ErrCalendarAccess):
		return "calendar_access"
	case errors.Is(err, ErrStorage):
		return "storage"
	}

	var vErr *RecordValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
