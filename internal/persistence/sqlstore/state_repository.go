package sqlstore

import (
	"context"
	"strings"
	"time"

	"github.com/example/calendar-assistant/internal/persistence"
)

var _ persistence.StateRepository = (*Storage)(nil)

// SetState records state for userID, replacing any previous value and
// refreshing its timestamp.
func (s *Storage) SetState(ctx context.Context, userID, state string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(state) == "" {
		return persistence.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		INSERT INTO user_states (user_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`

	if _, err := s.exec(ctx, query, userID, state, s.dialect.timeArg(s.currentTime())); err != nil {
		return mapError("set state", err)
	}
	return nil
}

// GetState returns the stored state for userID or persistence.ErrNotFound.
func (s *Storage) GetState(ctx context.Context, userID string) (persistence.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `SELECT state, updated_at FROM user_states WHERE user_id = ?`

	var (
		state   string
		updated any
	)
	if err := s.queryRow(ctx, query, userID).Scan(&state, &updated); err != nil {
		return persistence.UserState{}, mapError("get state", err)
	}
	updatedAt, err := s.dialect.parseTime(updated)
	if err != nil {
		return persistence.UserState{}, mapError("get state", err)
	}

	return persistence.UserState{UserID: userID, State: state, UpdatedAt: updatedAt}, nil
}

// ClearState removes any state for userID. Clearing an absent row succeeds.
func (s *Storage) ClearState(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.exec(ctx, `DELETE FROM user_states WHERE user_id = ?`, userID); err != nil {
		return mapError("clear state", err)
	}
	return nil
}

// ConsumeState deletes the row only when it still holds expected. Exactly one
// of several concurrent callers observes true.
func (s *Storage) ConsumeState(ctx context.Context, userID, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.exec(ctx, `DELETE FROM user_states WHERE user_id = ? AND state = ?`, userID, expected)
	if err != nil {
		return false, mapError("consume state", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, mapError("consume state", err)
	}
	return n > 0, nil
}

// ListStale returns users whose state equals state and whose timestamp is
// older than olderThan.
func (s *Storage) ListStale(ctx context.Context, state string, olderThan time.Duration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.currentTime().Add(-olderThan)
	const query = `
		SELECT user_id FROM user_states
		WHERE state = ? AND updated_at < ?
		ORDER BY updated_at ASC, user_id ASC`

	rows, err := s.query(ctx, query, state, s.dialect.timeArg(cutoff))
	if err != nil {
		return nil, mapError("list stale states", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, mapError("list stale states", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list stale states", err)
	}
	return users, nil
}

// ExpireState deletes the row only when it still holds state and was last
// updated before cutoff. A row refreshed after listing is left alone.
func (s *Storage) ExpireState(ctx context.Context, userID, state string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `DELETE FROM user_states WHERE user_id = ? AND state = ? AND updated_at < ?`

	result, err := s.exec(ctx, query, userID, state, s.dialect.timeArg(cutoff))
	if err != nil {
		return false, mapError("expire state", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, mapError("expire state", err)
	}
	return n > 0, nil
}
