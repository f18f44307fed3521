package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration: execution failed")
	ErrInvalidMigrationFile = errors.New("migration: invalid file")
	ErrDuplicateVersion     = errors.New("migration: duplicate version")
	// ErrChecksumMismatch means an applied file was edited after it ran.
	ErrChecksumMismatch = errors.New("migration: applied checksum mismatch")
)

// MigrationError records which step failed and for which file.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.FilePath != "" {
		b.WriteString(" (" + e.FilePath + ")")
	}
	return fmt.Sprintf("%s: %s: %v", b.String(), e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// NewMigrationError wraps err with the failing step.
func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}
