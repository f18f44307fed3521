package application

import "time"

// ConversationState is the per-user position in the registration flow.
// Absence of a stored row is StateNone.
type ConversationState string

const (
	StateNone          ConversationState = "NONE"
	StateAwaitingInput ConversationState = "AWAITING_INPUT"
)

// AuthorizationMode selects how a message waits on the consent handshake.
type AuthorizationMode string

const (
	// AuthorizationDecoupled sends the consent URL and ends the workflow; the
	// user resends the message after authorizing.
	AuthorizationDecoupled AuthorizationMode = "decoupled"
	// AuthorizationBlocking waits for the callback up to the authorization
	// timeout and then continues with the original message.
	AuthorizationBlocking AuthorizationMode = "blocking"
)

// EventRecord is one event extracted from a free-text message. Dates use
// YYYY-MM-DD and times HH:MM or HH:MM:SS. An empty StartTime is an all-day event.
type EventRecord struct {
	Summary     string `json:"summary"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date"`
	StartTime   string `json:"start_time,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// AllDay reports whether the record has no start time.
func (r EventRecord) AllDay() bool {
	return r.StartTime == ""
}

// CreatedEvent references an event stored by the calendar provider.
type CreatedEvent struct {
	ID      string
	Summary string
	Link    string
}

// MessageRef identifies a chat message that replies are threaded to.
type MessageRef struct {
	ChannelID string
	MessageID string
	UserID    string
}

// Message is an inbound chat message from a user in a channel.
type Message struct {
	Ref     MessageRef
	Content string
}

// RecordOutcome is the result of creating one record in a batch.
type RecordOutcome struct {
	Record EventRecord
	Event  CreatedEvent
	Err    error
}

// BatchResult aggregates per-record outcomes of one message.
type BatchResult struct {
	Outcomes []RecordOutcome
}

// Succeeded counts records that were created.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts records that could not be created.
func (b BatchResult) Failed() int {
	return len(b.Outcomes) - b.Succeeded()
}

// PendingAuthorization is an in-memory consent handshake awaiting its callback.
type PendingAuthorization struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
