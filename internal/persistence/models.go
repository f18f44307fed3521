package persistence

import "time"

// AwaitingInput is the stored state value for a user whose next message is
// treated as an event description.
const AwaitingInput = "waiting_for_details"

// UserState represents the transient conversational marker kept per chat user.
type UserState struct {
	UserID    string
	State     string
	UpdatedAt time.Time
}

// Credential represents the provider authorization blob stored for a chat user.
// An empty Blob is a cleared credential.
type Credential struct {
	UserID string
	Blob   string
}
