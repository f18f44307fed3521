package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLExecutor implements Executor on database/sql. Rebind converts '?'
// placeholders for drivers that use another style; nil leaves queries as-is.
type SQLExecutor struct {
	db     *sql.DB
	rebind func(string) string
}

// NewExecutor creates a migration executor.
func NewExecutor(db *sql.DB, rebind func(string) string) *SQLExecutor {
	if rebind == nil {
		rebind = func(q string) string { return q }
	}
	return &SQLExecutor{db: db, rebind: rebind}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`

	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewMigrationError("", "", "create schema_migrations table", err)
	}
	return nil
}

// ExecuteMigration runs every statement of a migration and records the version
// in the same transaction.
func (e *SQLExecutor) ExecuteMigration(ctx context.Context, migration Migration) (elapsed time.Duration, err error) {
	start := time.Now()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback error: %v)", err, rbErr)
			}
		}
	}()

	for i, stmt := range splitStatements(migration.SQL) {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			err = NewMigrationError(migration.Version, migration.FilePath,
				fmt.Sprintf("execute statement %d", i+1), fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
			return 0, err
		}
	}

	elapsed = time.Since(start)
	insert := e.rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	if _, execErr := tx.ExecContext(ctx, insert,
		migration.Version,
		time.Now().UTC().Format(time.RFC3339),
		migration.Checksum,
		elapsed.Milliseconds(),
	); execErr != nil {
		err = NewMigrationError(migration.Version, migration.FilePath, "record migration", execErr)
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		err = NewMigrationError(migration.Version, migration.FilePath, "commit transaction", err)
		return 0, err
	}

	return elapsed, nil
}

// GetAppliedVersions returns all applied migration versions with timestamps
func (e *SQLExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	const query = `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY version ASC`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, NewMigrationError("", "", "query applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			version, appliedAt, checksum string
			executionMs                  int64
		)
		if err := rows.Scan(&version, &appliedAt, &executionMs, &checksum); err != nil {
			return nil, NewMigrationError("", "", "scan applied migration", err)
		}
		at, parseErr := time.Parse(time.RFC3339, appliedAt)
		if parseErr != nil {
			return nil, NewMigrationError(version, "", "parse applied_at", parseErr)
		}
		applied = append(applied, AppliedMigration{
			Version:       version,
			AppliedAt:     at,
			ExecutionTime: time.Duration(executionMs) * time.Millisecond,
			Checksum:      checksum,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, NewMigrationError("", "", "iterate applied migrations", err)
	}

	return applied, nil
}
