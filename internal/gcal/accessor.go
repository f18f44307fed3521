package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/example/calendar-assistant/internal/application"
)

// Accessor implements application.CalendarAccessor. Each handle refreshes
// the user's token when needed and reports the refreshed credential.
type Accessor struct {
	provider   *Provider
	calendarID string
	location   *time.Location
	options    []option.ClientOption
}

var _ application.CalendarAccessor = (*Accessor)(nil)

// NewAccessor creates an accessor that writes to calendarID with events in
// location. Extra client options are appended to every service.
func NewAccessor(provider *Provider, calendarID string, location *time.Location, opts ...option.ClientOption) *Accessor {
	if calendarID == "" {
		calendarID = "primary"
	}
	if location == nil {
		location = time.UTC
	}
	return &Accessor{provider: provider, calendarID: calendarID, location: location, options: opts}
}

// ServiceHandle returns a calendar service for blob. refreshed is non-empty
// when the token was renewed and differs from blob.
func (a *Accessor) ServiceHandle(ctx context.Context, blob string) (application.CalendarService, string, error) {
	token, err := DecodeToken(blob)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", application.ErrCredentialRejected, err)
	}

	source := a.provider.config.TokenSource(ctx, token)
	current, err := source.Token()
	if err != nil {
		if refreshRefused(err) {
			return nil, "", fmt.Errorf("%w: refresh token: %w", application.ErrCredentialRejected, err)
		}
		return nil, "", fmt.Errorf("refresh token: %w", err)
	}

	refreshed := ""
	if current.AccessToken != token.AccessToken {
		if refreshed, err = EncodeToken(current); err != nil {
			return nil, "", err
		}
	}

	opts := append([]option.ClientOption{option.WithTokenSource(oauth2.ReuseTokenSource(current, source))}, a.options...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, refreshed, fmt.Errorf("create calendar service: %w", err)
	}

	return NewService(svc, a.calendarID, a.location), refreshed, nil
}

// refreshRefused reports whether the token endpoint refused the refresh
// token itself. Network and server errors are not refusals.
func refreshRefused(err error) bool {
	var rErr *oauth2.RetrieveError
	if !errors.As(err, &rErr) {
		return false
	}
	return rErr.ErrorCode == "invalid_grant"
}

// Service creates events in one calendar.
type Service struct {
	events     *calendar.EventsService
	calendarID string
	location   *time.Location
}

var _ application.CalendarService = (*Service)(nil)

// NewService wraps an authenticated calendar client.
func NewService(svc *calendar.Service, calendarID string, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{events: svc.Events, calendarID: calendarID, location: location}
}

// CreateEvent inserts record and returns the created event reference.
func (s *Service) CreateEvent(ctx context.Context, record application.EventRecord) (application.CreatedEvent, error) {
	event, err := EventBody(record, s.location)
	if err != nil {
		return application.CreatedEvent{}, err
	}

	created, err := s.events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		return application.CreatedEvent{}, fmt.Errorf("insert event: %w", err)
	}

	return application.CreatedEvent{
		ID:      created.Id,
		Summary: created.Summary,
		Link:    created.HtmlLink,
	}, nil
}

// EventBody converts a record to a calendar event. Timed events carry the
// location's zone; all-day events use dates with an exclusive end.
func EventBody(record application.EventRecord, location *time.Location) (*calendar.Event, error) {
	completed, err := application.CompleteEventWindow(record)
	if err != nil {
		return nil, err
	}

	event := &calendar.Event{
		Summary:     completed.Summary,
		Location:    completed.Location,
		Description: completed.Description,
	}

	if completed.AllDay() {
		event.Start = &calendar.EventDateTime{Date: completed.StartDate}
		event.End = &calendar.EventDateTime{Date: completed.EndDate}
		return event, nil
	}

	start, err := time.ParseInLocation("2006-01-02 15:04:05", completed.StartDate+" "+completed.StartTime, location)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04:05", completed.EndDate+" "+completed.EndTime, location)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	event.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: location.String()}
	event.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: location.String()}
	return event, nil
}
