package testfixtures

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/calendar-assistant/internal/application"
)

type memoryState struct {
	state     application.ConversationState
	updatedAt time.Time
}

// MemoryStateStore is an in-memory application.StateStore stamped by a Clock.
type MemoryStateStore struct {
	mu          sync.Mutex
	clock       *Clock
	states      map[string]memoryState
	credentials map[string]string
}

var _ application.StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore returns an empty store. A nil clock uses ReferenceTime.
func NewMemoryStateStore(clock *Clock) *MemoryStateStore {
	if clock == nil {
		clock = NewClock(time.Time{})
	}
	return &MemoryStateStore{
		clock:       clock,
		states:      make(map[string]memoryState),
		credentials: make(map[string]string),
	}
}

func (m *MemoryStateStore) SetState(_ context.Context, userID string, state application.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == application.StateNone {
		delete(m.states, userID)
		return nil
	}
	m.states[userID] = memoryState{state: state, updatedAt: m.clock.Now()}
	return nil
}

func (m *MemoryStateStore) CurrentState(_ context.Context, userID string) (application.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok {
		return s.state, nil
	}
	return application.StateNone, nil
}

func (m *MemoryStateStore) ClearState(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

func (m *MemoryStateStore) ConsumeAwaiting(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok && s.state == application.StateAwaitingInput {
		delete(m.states, userID)
		return true, nil
	}
	return false, nil
}

func (m *MemoryStateStore) ListStale(_ context.Context, threshold time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.clock.Now().Add(-threshold)
	var users []string
	for id, s := range m.states {
		if s.state == application.StateAwaitingInput && s.updatedAt.Before(cutoff) {
			users = append(users, id)
		}
	}
	sort.Strings(users)
	return users, nil
}

func (m *MemoryStateStore) ExpireAwaiting(_ context.Context, userID string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[userID]; ok && s.state == application.StateAwaitingInput && s.updatedAt.Before(cutoff) {
		delete(m.states, userID)
		return true, nil
	}
	return false, nil
}

func (m *MemoryStateStore) SaveCredential(_ context.Context, userID, blob string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[userID] = blob
	return nil
}

func (m *MemoryStateStore) Credential(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credentials[userID], nil
}
