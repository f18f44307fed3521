package application

import (
	"context"
	"time"
)

// StateStore is the only shared mutable resource of the workflow. Every method
// is atomic with respect to the others.
type StateStore interface {
	SetState(ctx context.Context, userID string, state ConversationState) error
	// CurrentState returns StateNone when nothing is stored.
	CurrentState(ctx context.Context, userID string) (ConversationState, error)
	ClearState(ctx context.Context, userID string) error
	// ConsumeAwaiting clears AWAITING_INPUT and reports whether this caller
	// observed it.
	ConsumeAwaiting(ctx context.Context, userID string) (bool, error)
	ListStale(ctx context.Context, threshold time.Duration) ([]string, error)
	// ExpireAwaiting clears AWAITING_INPUT only when it is still older than cutoff.
	ExpireAwaiting(ctx context.Context, userID string, cutoff time.Time) (bool, error)
	SaveCredential(ctx context.Context, userID, blob string) error
	// Credential returns the stored blob. An empty blob means no credential.
	Credential(ctx context.Context, userID string) (string, error)
}

// Extractor turns free text into event records.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]EventRecord, error)
}

// CalendarService creates events on behalf of one authorized user.
type CalendarService interface {
	CreateEvent(ctx context.Context, record EventRecord) (CreatedEvent, error)
}

// CalendarAccessor opens a calendar service from a credential blob. When the
// provider refreshed the credential, refreshed holds the new blob.
type CalendarAccessor interface {
	ServiceHandle(ctx context.Context, blob string) (service CalendarService, refreshed string, err error)
}

// AuthorizationProvider builds consent URLs and exchanges callback codes.
type AuthorizationProvider interface {
	AuthorizationURL(correlationToken string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// Notifier delivers replies and direct messages on the chat platform.
type Notifier interface {
	Reply(ctx context.Context, ref MessageRef, text string) error
	// ReplyTransient sends a reply that is removed after a short delay.
	ReplyTransient(ctx context.Context, ref MessageRef, text string) error
	ReplyCreated(ctx context.Context, ref MessageRef, record EventRecord, event CreatedEvent) error
	// SendDirect returns ErrDirectMessageRefused when the user blocks direct messages.
	SendDirect(ctx context.Context, userID, text string) error
}
