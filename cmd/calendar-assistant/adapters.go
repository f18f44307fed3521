package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/persistence"
	"github.com/example/calendar-assistant/internal/vault"
)

type stateRepository interface {
	persistence.StateRepository
	persistence.CredentialRepository
}

// stateStoreAdapter maps the workflow's StateStore onto the persistence
// repositories. A missing row or an unrecognised value reads as NONE and a
// missing or unreadable credential as "".
type stateStoreAdapter struct {
	repo   stateRepository
	logger *slog.Logger
}

var _ application.StateStore = (*stateStoreAdapter)(nil)

func newStateStoreAdapter(repo stateRepository, logger *slog.Logger) *stateStoreAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &stateStoreAdapter{repo: repo, logger: logger}
}

func (a *stateStoreAdapter) SetState(ctx context.Context, userID string, state application.ConversationState) error {
	if state == application.StateNone {
		return a.repo.ClearState(ctx, userID)
	}
	return a.repo.SetState(ctx, userID, toStoredState(state))
}

func (a *stateStoreAdapter) CurrentState(ctx context.Context, userID string) (application.ConversationState, error) {
	stored, err := a.repo.GetState(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return application.StateNone, nil
	}
	if err != nil {
		return application.StateNone, err
	}
	return toConversationState(stored.State), nil
}

func (a *stateStoreAdapter) ClearState(ctx context.Context, userID string) error {
	return a.repo.ClearState(ctx, userID)
}

func (a *stateStoreAdapter) ConsumeAwaiting(ctx context.Context, userID string) (bool, error) {
	return a.repo.ConsumeState(ctx, userID, persistence.AwaitingInput)
}

func (a *stateStoreAdapter) ListStale(ctx context.Context, threshold time.Duration) ([]string, error) {
	return a.repo.ListStale(ctx, persistence.AwaitingInput, threshold)
}

func (a *stateStoreAdapter) ExpireAwaiting(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	return a.repo.ExpireState(ctx, userID, persistence.AwaitingInput, cutoff)
}

func (a *stateStoreAdapter) SaveCredential(ctx context.Context, userID, blob string) error {
	return a.repo.SaveCredential(ctx, userID, blob)
}

func (a *stateStoreAdapter) Credential(ctx context.Context, userID string) (string, error) {
	stored, err := a.repo.GetCredential(ctx, userID)
	if errors.Is(err, persistence.ErrNotFound) {
		return "", nil
	}
	if errors.Is(err, vault.ErrCorrupt) || errors.Is(err, vault.ErrSealedWithoutKey) {
		// a rotated or removed key; the user has to authorize again
		a.logger.WarnContext(ctx, "discarding unreadable credential", "user_id", userID, "error", err)
		if clearErr := a.repo.SaveCredential(ctx, userID, ""); clearErr != nil {
			return "", clearErr
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return stored.Blob, nil
}

func toStoredState(state application.ConversationState) string {
	if state == application.StateAwaitingInput {
		return persistence.AwaitingInput
	}
	return string(state)
}

func toConversationState(stored string) application.ConversationState {
	if stored == persistence.AwaitingInput {
		return application.StateAwaitingInput
	}
	return application.StateNone
}
