package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionRegistry tracks pending authorization handshakes in memory. Sessions
// are lost on restart; a user whose session vanished simply authorizes again.
type SessionRegistry struct {
	mu       sync.Mutex
	byToken  map[string]PendingAuthorization
	byUser   map[string]string
	waiters  map[string]*waiter
	ttl      time.Duration
	now      func() time.Time
	newToken func() string
}

// NewSessionRegistry creates a registry whose sessions expire after ttl.
func NewSessionRegistry(ttl time.Duration, now func() time.Time, newToken func() string) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	if newToken == nil {
		newToken = uuid.NewString
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SessionRegistry{
		byToken:  make(map[string]PendingAuthorization),
		byUser:   make(map[string]string),
		waiters:  make(map[string]*waiter),
		ttl:      ttl,
		now:      now,
		newToken: newToken,
	}
}

// Begin registers a new pending session for userID. When wait is set the
// outcome is kept for a later Await. A previous pending session of the same
// user is dropped and its waiter, if any, is released with
// ErrAuthorizationFailed.
func (r *SessionRegistry) Begin(userID string, wait bool) PendingAuthorization {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.byUser[userID]; ok {
		r.removeLocked(previous)
		r.signalLocked(previous, ErrAuthorizationFailed)
	}

	created := r.now()
	session := PendingAuthorization{
		Token:     r.newToken(),
		UserID:    userID,
		CreatedAt: created,
		ExpiresAt: created.Add(r.ttl),
	}
	r.byToken[session.Token] = session
	r.byUser[userID] = session.Token
	if wait {
		r.waiters[session.Token] = &waiter{done: make(chan error, 1)}
	}
	return session
}

// Take removes and returns the session for token. Unknown, reused and
// expired tokens report false.
func (r *SessionRegistry) Take(token string) (PendingAuthorization, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byToken[token]
	if !ok {
		return PendingAuthorization{}, false
	}
	r.removeLocked(token)
	if !r.now().Before(session.ExpiresAt) {
		r.signalLocked(token, ErrAuthorizationTimeout)
		return PendingAuthorization{}, false
	}
	return session, true
}

// Signal delivers the handshake outcome to the waiter of token and reports
// whether one was registered.
func (r *SessionRegistry) Signal(token string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signalLocked(token, err)
}

// Await blocks until the handshake for token completes, timeout elapses or
// ctx is done. An outcome signalled before Await is returned immediately. The
// session is discarded on timeout.
func (r *SessionRegistry) Await(ctx context.Context, token string, timeout time.Duration) error {
	r.mu.Lock()
	w, ok := r.waiters[token]
	r.mu.Unlock()
	if !ok {
		return ErrUnknownCorrelation
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-w.done:
		r.mu.Lock()
		delete(r.waiters, token)
		r.mu.Unlock()
		return err
	case <-timer.C:
		r.Discard(token)
		return ErrAuthorizationTimeout
	case <-ctx.Done():
		r.Discard(token)
		return ctx.Err()
	}
}

// Discard drops a session and its waiter without signalling.
func (r *SessionRegistry) Discard(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(token)
	delete(r.waiters, token)
}

// PruneExpired removes expired sessions. Waiters are released with
// ErrAuthorizationTimeout; sessions without a waiter are returned.
func (r *SessionRegistry) PruneExpired() []PendingAuthorization {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var unattended []PendingAuthorization
	for token, session := range r.byToken {
		if now.Before(session.ExpiresAt) {
			continue
		}
		r.removeLocked(token)
		if !r.signalLocked(token, ErrAuthorizationTimeout) {
			unattended = append(unattended, session)
		}
	}
	return unattended
}

// Pending reports the number of sessions awaiting a callback.
func (r *SessionRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byToken)
}

func (r *SessionRegistry) removeLocked(token string) {
	session, ok := r.byToken[token]
	if !ok {
		return
	}
	delete(r.byToken, token)
	if r.byUser[session.UserID] == token {
		delete(r.byUser, session.UserID)
	}
}

type waiter struct {
	done     chan error
	signaled bool
}

// signalLocked reports whether token had a waiter. The waiter stays
// registered until Await collects the outcome.
func (r *SessionRegistry) signalLocked(token string, err error) bool {
	w, ok := r.waiters[token]
	if !ok {
		return false
	}
	if !w.signaled {
		w.signaled = true
		w.done <- err
	}
	return true
}
