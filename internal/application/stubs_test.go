package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memState struct {
	state     ConversationState
	updatedAt time.Time
}

// memStore is an in-memory StateStore guarded by one mutex.
type memStore struct {
	mu          sync.Mutex
	now         func() time.Time
	states      map[string]memState
	credentials map[string]string

	setErr   error
	credErr  error
	saveErr  error
	saveHits int
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{
		now:         now,
		states:      make(map[string]memState),
		credentials: make(map[string]string),
	}
}

func (m *memStore) SetState(_ context.Context, userID string, state ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.states[userID] = memState{state: state, updatedAt: m.now()}
	return nil
}

func (m *memStore) CurrentState(_ context.Context, userID string) (ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return StateNone, nil
	}
	return st.state, nil
}

func (m *memStore) ClearState(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func (m *memStore) ConsumeAwaiting(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok || st.state != StateAwaitingInput {
		return false, nil
	}
	delete(m.states, userID)
	return true, nil
}

func (m *memStore) ListStale(_ context.Context, threshold time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-threshold)
	var users []string
	for id, st := range m.states {
		if st.state == StateAwaitingInput && st.updatedAt.Before(cutoff) {
			users = append(users, id)
		}
	}
	return users, nil
}

func (m *memStore) ExpireAwaiting(_ context.Context, userID string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok || st.state != StateAwaitingInput || !st.updatedAt.Before(cutoff) {
		return false, nil
	}
	delete(m.states, userID)
	return true, nil
}

func (m *memStore) SaveCredential(_ context.Context, userID, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveHits++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.credentials[userID] = blob
	return nil
}

func (m *memStore) Credential(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.credErr != nil {
		return "", m.credErr
	}
	return m.credentials[userID], nil
}

func (m *memStore) credential(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.credentials[userID]
	return blob, ok
}

type sentReply struct {
	Ref       MessageRef
	Text      string
	Transient bool
	Created   *CreatedEvent
}

type sentDirect struct {
	UserID string
	Text   string
}

type notifierStub struct {
	mu        sync.Mutex
	replies   []sentReply
	directs   []sentDirect
	directErr error
	onDirect  func(userID, text string)
}

func (n *notifierStub) Reply(_ context.Context, ref MessageRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, sentReply{Ref: ref, Text: text})
	return nil
}

func (n *notifierStub) ReplyTransient(_ context.Context, ref MessageRef, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.replies = append(n.replies, sentReply{Ref: ref, Text: text, Transient: true})
	return nil
}

func (n *notifierStub) ReplyCreated(_ context.Context, ref MessageRef, _ EventRecord, event CreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	created := event
	n.replies = append(n.replies, sentReply{Ref: ref, Created: &created})
	return nil
}

func (n *notifierStub) SendDirect(_ context.Context, userID, text string) error {
	n.mu.Lock()
	err := n.directErr
	if err == nil {
		n.directs = append(n.directs, sentDirect{UserID: userID, Text: text})
	}
	hook := n.onDirect
	n.mu.Unlock()
	if err == nil && hook != nil {
		hook(userID, text)
	}
	return err
}

func (n *notifierStub) Replies() []sentReply {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentReply(nil), n.replies...)
}

func (n *notifierStub) Directs() []sentDirect {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentDirect(nil), n.directs...)
}

type extractorStub struct {
	mu      sync.Mutex
	records []EventRecord
	err     error
	calls   int
	block   chan struct{}
}

func (e *extractorStub) Extract(_ context.Context, _ string) ([]EventRecord, error) {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return append([]EventRecord(nil), e.records...), e.err
}

func (e *extractorStub) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type calendarServiceStub struct {
	mu      sync.Mutex
	failOn  map[string]error
	created []EventRecord
}

func (c *calendarServiceStub) CreateEvent(_ context.Context, record EventRecord) (CreatedEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failOn[record.Summary]; err != nil {
		return CreatedEvent{}, err
	}
	c.created = append(c.created, record)
	return CreatedEvent{
		ID:      "evt-" + record.Summary,
		Summary: record.Summary,
		Link:    "https://calendar.example/" + record.Summary,
	}, nil
}

func (c *calendarServiceStub) Created() []EventRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]EventRecord(nil), c.created...)
}

type accessorStub struct {
	mu        sync.Mutex
	service   *calendarServiceStub
	refreshed string
	err       error
	blobs     []string
}

func (a *accessorStub) ServiceHandle(_ context.Context, blob string) (CalendarService, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs = append(a.blobs, blob)
	if a.err != nil {
		return nil, a.refreshed, a.err
	}
	return a.service, a.refreshed, nil
}

func (a *accessorStub) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blobs)
}

type providerStub struct {
	mu       sync.Mutex
	blob     string
	err      error
	codes    []string
	urlBase  string
	lastSent string
}

func (p *providerStub) AuthorizationURL(token string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	base := p.urlBase
	if base == "" {
		base = "https://accounts.example/consent"
	}
	p.lastSent = token
	return base + "?state=" + token
}

func (p *providerStub) ExchangeCode(_ context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes = append(p.codes, code)
	return p.blob, p.err
}

func (p *providerStub) LastToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSent
}

var errBoom = errors.New("boom")

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
