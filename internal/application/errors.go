package application

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEvents is returned when extraction produced zero records.
	ErrNoEvents = errors.New("application: no events extracted")
	// ErrWrongChannel is returned when a registration command is issued outside the monitored channel.
	ErrWrongChannel = errors.New("application: command used outside the monitored channel")
	// ErrNothingInProgress is returned when cancel is requested without an active state.
	ErrNothingInProgress = errors.New("application: nothing in progress")
	// ErrNotAwaitingInput is returned when a message arrives while the user is not awaiting input.
	ErrNotAwaitingInput = errors.New("application: not awaiting input")
	// ErrAuthorizationRequired is returned when a message stopped to send a consent URL.
	ErrAuthorizationRequired = errors.New("application: authorization required")
	// ErrAuthorizationUnavailable is returned when the callback listener could not start.
	ErrAuthorizationUnavailable = errors.New("application: authorization unavailable")
	// ErrAuthorizationFailed is returned when the code exchange or consent failed.
	ErrAuthorizationFailed = errors.New("application: authorization failed")
	// ErrAuthorizationTimeout is returned when a blocking wait outlives its bound.
	ErrAuthorizationTimeout = errors.New("application: authorization timed out")
	// ErrUnknownCorrelation is returned for callbacks whose token is unknown or already used.
	ErrUnknownCorrelation = errors.New("application: unknown correlation token")
	// ErrDirectMessageRefused is returned by notifiers when the user does not accept direct messages.
	ErrDirectMessageRefused = errors.New("application: direct message refused")
	// ErrExtractionFailed wraps errors reported by the extractor.
	ErrExtractionFailed = errors.New("application: extraction failed")
	// ErrCalendarAccess is returned when no calendar handle could be obtained from the credential.
	ErrCalendarAccess = errors.New("application: calendar access failed")
	// ErrCredentialRejected is wrapped by calendar accessors when the stored
	// credential is unreadable or its refresh token was refused.
	ErrCredentialRejected = errors.New("application: credential rejected")
	// ErrStorage wraps state store failures.
	ErrStorage = errors.New("application: storage failure")
)

// RecordValidationError reports the first invalid field of an extracted record.
type RecordValidationError struct {
	Index  int
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *RecordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("record %d: %s %s", e.Index, e.Field, e.Reason)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
