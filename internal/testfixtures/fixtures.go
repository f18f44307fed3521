package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/gcal"
)

var messageCounter uint64

var referenceTime = time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event records -----------------------------

// RecordOption configures a generated event record.
type RecordOption func(*application.EventRecord)

// WithSummary sets the event title.
func WithSummary(summary string) RecordOption {
	return func(r *application.EventRecord) { r.Summary = summary }
}

// WithLocation sets the event location.
func WithLocation(location string) RecordOption {
	return func(r *application.EventRecord) { r.Location = location }
}

// WithStart sets the start date and time. An empty time makes the record all-day.
func WithStart(date, clock string) RecordOption {
	return func(r *application.EventRecord) {
		r.StartDate = date
		r.StartTime = clock
	}
}

// WithEnd sets the end date and time.
func WithEnd(date, clock string) RecordOption {
	return func(r *application.EventRecord) {
		r.EndDate = date
		r.EndTime = clock
	}
}

// NewTimedRecord returns a one-off meeting the day after ReferenceTime at 15:00.
func NewTimedRecord(opts ...RecordOption) application.EventRecord {
	record := application.EventRecord{
		Summary:   "打ち合わせ",
		Location:  "第3会議室",
		StartDate: referenceTime.AddDate(0, 0, 1).Format("2006-01-02"),
		StartTime: "15:00:00",
	}
	for _, opt := range opts {
		opt(&record)
	}
	return record
}

// NewAllDayRecord returns an all-day event on the day after ReferenceTime.
func NewAllDayRecord(opts ...RecordOption) application.EventRecord {
	record := application.EventRecord{
		Summary:   "出張",
		StartDate: referenceTime.AddDate(0, 0, 1).Format("2006-01-02"),
	}
	for _, opt := range opts {
		opt(&record)
	}
	return record
}

// ------------------------------- Messages --------------------------------

// NewMessage returns a channel message from userID with a unique message id.
func NewMessage(channelID, userID, content string) application.Message {
	idx := atomic.AddUint64(&messageCounter, 1)
	return application.Message{
		Ref: application.MessageRef{
			ChannelID: channelID,
			MessageID: fmt.Sprintf("msg-%03d", idx),
			UserID:    userID,
		},
		Content: content,
	}
}

// ------------------------------ Credentials ------------------------------

// CredentialBlob returns a decodable credential for userID whose access
// token stays valid for an hour past now.
func CredentialBlob(userID string, now time.Time) string {
	blob, err := gcal.EncodeToken(&oauth2.Token{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "Bearer",
		Expiry:       now.Add(time.Hour),
	})
	if err != nil {
		panic(fmt.Sprintf("testfixtures: encode credential: %v", err))
	}
	return blob
}
