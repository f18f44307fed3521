package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/calendar-assistant/internal/persistence"
)

// mapError maps driver errors to persistence layer errors.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	for _, marker := range []string{"database is locked", "SQLITE_BUSY", "database table is locked"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%s: %w: %v", op, persistence.ErrLocked, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
