package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// AuthorizationService runs the consent handshake between a chat user and the
// calendar provider.
type AuthorizationService struct {
	provider    AuthorizationProvider
	store       StateStore
	notifier    Notifier
	sessions    *SessionRegistry
	unavailable atomic.Bool
	logger      *slog.Logger
}

// NewAuthorizationService constructs the handshake service.
func NewAuthorizationService(provider AuthorizationProvider, store StateStore, notifier Notifier, sessions *SessionRegistry) *AuthorizationService {
	return NewAuthorizationServiceWithLogger(provider, store, notifier, sessions, nil)
}

// NewAuthorizationServiceWithLogger constructs the handshake service with a specified logger.
func NewAuthorizationServiceWithLogger(provider AuthorizationProvider, store StateStore, notifier Notifier, sessions *SessionRegistry, logger *slog.Logger) *AuthorizationService {
	if sessions == nil {
		sessions = NewSessionRegistry(0, nil, nil)
	}
	return &AuthorizationService{
		provider: provider,
		store:    store,
		notifier: notifier,
		sessions: sessions,
		logger:   defaultLogger(logger),
	}
}

func (s *AuthorizationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthorizationService", operation, attrs...)
}

// MarkUnavailable disables new handshakes after the callback listener failed
// to start. It stays disabled until restart.
func (s *AuthorizationService) MarkUnavailable(cause error) {
	if s.unavailable.CompareAndSwap(false, true) {
		s.logger.Error("authorization subsystem unavailable",
			"service", "AuthorizationService",
			"error", cause,
		)
	}
}

// Available reports whether handshakes can be started.
func (s *AuthorizationService) Available() bool {
	return !s.unavailable.Load()
}

// Sessions exposes the registry so the sweeper can prune it.
func (s *AuthorizationService) Sessions() *SessionRegistry {
	return s.sessions
}

// BeginAuthorization mints a correlation token for userID and returns the
// consent URL that carries it.
func (s *AuthorizationService) BeginAuthorization(ctx context.Context, userID string, wait bool) (url string, session PendingAuthorization, err error) {
	logger := s.loggerWith(ctx, "BeginAuthorization", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to begin authorization", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authorization started", "expires_at", session.ExpiresAt)
	}()

	if !s.Available() {
		err = ErrAuthorizationUnavailable
		return
	}
	if s.provider == nil {
		err = fmt.Errorf("authorization provider not configured: %w", ErrAuthorizationUnavailable)
		return
	}

	session = s.sessions.Begin(userID, wait)
	url = s.provider.AuthorizationURL(session.Token)
	return
}

// Discard abandons a handshake whose URL could not be delivered.
func (s *AuthorizationService) Discard(token string) {
	s.sessions.Discard(token)
}

// Await blocks until the handshake for token completes or timeout elapses.
func (s *AuthorizationService) Await(ctx context.Context, token string, timeout time.Duration) error {
	return s.sessions.Await(ctx, token, timeout)
}

// CompleteAuthorization handles the provider callback. Unknown or reused
// tokens return ErrUnknownCorrelation without touching any state. A failed
// exchange clears the user's state, notifies them and returns
// ErrAuthorizationFailed. On success the credential is stored and the user is
// told to continue.
func (s *AuthorizationService) CompleteAuthorization(ctx context.Context, token, code string) (userID string, err error) {
	logger := s.loggerWith(ctx, "CompleteAuthorization")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete authorization", "user_id", userID, "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authorization completed", "user_id", userID)
	}()

	token = strings.TrimSpace(token)
	if token == "" || strings.TrimSpace(code) == "" {
		err = ErrUnknownCorrelation
		return
	}

	session, ok := s.sessions.Take(token)
	if !ok {
		err = ErrUnknownCorrelation
		return
	}
	userID = session.UserID

	blob, exchangeErr := s.provider.ExchangeCode(ctx, code)
	if exchangeErr == nil && strings.TrimSpace(blob) == "" {
		exchangeErr = errors.New("provider returned an empty credential")
	}
	if exchangeErr != nil {
		err = fmt.Errorf("%w: %v", ErrAuthorizationFailed, exchangeErr)
		s.fail(ctx, logger, session, err, authorizationFailedMessage(exchangeErr))
		return
	}

	if saveErr := s.store.SaveCredential(ctx, userID, blob); saveErr != nil {
		err = storageError("save credential", saveErr)
		s.fail(ctx, logger, session, err, MsgStorageFailed)
		return
	}

	waiting := s.sessions.Signal(token, nil)
	text := MsgAuthorizationDone
	if waiting {
		text = MsgAuthorizationResumed
	}
	s.notify(ctx, logger, userID, text)
	return
}

// RejectAuthorization handles a callback where the user denied consent.
func (s *AuthorizationService) RejectAuthorization(ctx context.Context, token, reason string) (userID string, err error) {
	logger := s.loggerWith(ctx, "RejectAuthorization", "reason", reason)

	session, ok := s.sessions.Take(strings.TrimSpace(token))
	if !ok {
		err = ErrUnknownCorrelation
		logger.WarnContext(ctx, "consent denial for unknown session", "error_kind", ErrorKind(err))
		return
	}
	userID = session.UserID
	err = fmt.Errorf("%w: consent denied: %s", ErrAuthorizationFailed, reason)
	s.fail(ctx, logger, session, err, MsgAuthorizationDenied)
	logger.InfoContext(ctx, "authorization denied by user", "user_id", userID)
	return
}

func (s *AuthorizationService) fail(ctx context.Context, logger *slog.Logger, session PendingAuthorization, cause error, text string) {
	if clearErr := s.store.ClearState(ctx, session.UserID); clearErr != nil {
		logger.ErrorContext(ctx, "failed to clear state after authorization failure", "user_id", session.UserID, "error", clearErr)
	}
	s.sessions.Signal(session.Token, cause)
	s.notify(ctx, logger, session.UserID, text)
}

func (s *AuthorizationService) notify(ctx context.Context, logger *slog.Logger, userID, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendDirect(ctx, userID, text); err != nil {
		logger.WarnContext(ctx, "failed to send direct message", "user_id", userID, "error", err, "error_kind", ErrorKind(err))
	}
}
