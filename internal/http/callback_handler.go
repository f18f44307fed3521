package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-assistant/internal/application"
)

// AuthorizationCompleter finishes or rejects a pending authorization.
type AuthorizationCompleter interface {
	CompleteAuthorization(ctx context.Context, token, code string) (string, error)
	RejectAuthorization(ctx context.Context, token, reason string) (string, error)
}

// CallbackHandler receives the provider redirect after the consent screen.
type CallbackHandler struct {
	service   AuthorizationCompleter
	responder responder
	logger    *slog.Logger
}

// NewCallbackHandler constructs a callback handler.
func NewCallbackHandler(service AuthorizationCompleter, logger *slog.Logger) *CallbackHandler {
	logger = defaultLogger(logger)
	return &CallbackHandler{service: service, responder: newResponder(logger), logger: logger}
}

// ServeHTTP handles GET requests carrying code and state.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	state := strings.TrimSpace(query.Get("state"))
	logger := handlerLogger(ctx, h.logger, "callback", "has_state", state != "")

	if reason := strings.TrimSpace(query.Get("error")); reason != "" {
		if state != "" {
			if _, err := h.service.RejectAuthorization(ctx, state, reason); err != nil && !errors.Is(err, application.ErrAuthorizationFailed) {
				logger.WarnContext(ctx, "consent denial could not be matched", "reason", reason, "error", err)
			}
		}
		h.responder.writePage(ctx, w, http.StatusBadRequest, pageDenied)
		return
	}

	code := strings.TrimSpace(query.Get("code"))
	if code == "" || state == "" {
		logger.WarnContext(ctx, "callback is missing parameters", "has_code", code != "")
		h.responder.writePage(ctx, w, http.StatusBadRequest, pageInvalidRequest)
		return
	}

	userID, err := h.service.CompleteAuthorization(ctx, state, code)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "callback accepted", "user_id", userID)
		h.responder.writePage(ctx, w, http.StatusOK, pageAuthorized)
	case errors.Is(err, application.ErrUnknownCorrelation):
		h.responder.writePage(ctx, w, http.StatusBadRequest, pageUnknownSession)
	case errors.Is(err, application.ErrAuthorizationFailed):
		h.responder.writePage(ctx, w, http.StatusInternalServerError, pageExchangeFailed)
	default:
		h.responder.writePage(ctx, w, http.StatusInternalServerError, pageInternalError)
	}
}
