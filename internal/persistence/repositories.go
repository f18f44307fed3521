package persistence

import (
	"context"
	"time"
)

// StateRepository stores per-user conversational state.
type StateRepository interface {
	SetState(ctx context.Context, userID, state string) error
	GetState(ctx context.Context, userID string) (UserState, error)
	ClearState(ctx context.Context, userID string) error
	// ConsumeState deletes the row only when it still holds the expected state
	// and reports whether this caller removed it.
	ConsumeState(ctx context.Context, userID, expected string) (bool, error)
	ListStale(ctx context.Context, state string, olderThan time.Duration) ([]string, error)
	// ExpireState deletes the row only when it still holds state and was last
	// updated before cutoff.
	ExpireState(ctx context.Context, userID, state string, cutoff time.Time) (bool, error)
}

// CredentialRepository stores provider credential blobs.
type CredentialRepository interface {
	SaveCredential(ctx context.Context, userID, blob string) error
	GetCredential(ctx context.Context, userID string) (Credential, error)
}
