package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/calendar-assistant/internal/persistence"
)

var _ persistence.CredentialRepository = (*Storage)(nil)

// SaveCredential upserts the credential blob for userID. An empty blob is
// stored as-is and marks the credential as unusable.
func (s *Storage) SaveCredential(ctx context.Context, userID, blob string) error {
	if strings.TrimSpace(userID) == "" {
		return persistence.ErrInvalidInput
	}

	sealed, err := s.sealer.Seal(userID, blob)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const query = `
		INSERT INTO user_credentials (user_id, credential_blob)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET credential_blob = excluded.credential_blob`

	if _, err := s.exec(ctx, query, userID, sealed); err != nil {
		return mapError("save credential", err)
	}
	return nil
}

// GetCredential returns the credential for userID or persistence.ErrNotFound.
func (s *Storage) GetCredential(ctx context.Context, userID string) (persistence.Credential, error) {
	s.mu.Lock()
	var stored string
	err := s.queryRow(ctx, `SELECT credential_blob FROM user_credentials WHERE user_id = ?`, userID).Scan(&stored)
	s.mu.Unlock()
	if err != nil {
		return persistence.Credential{}, mapError("get credential", err)
	}

	blob, err := s.sealer.Open(userID, stored)
	if err != nil {
		return persistence.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return persistence.Credential{UserID: userID, Blob: blob}, nil
}
