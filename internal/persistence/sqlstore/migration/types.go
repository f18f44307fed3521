package migration

import (
	"context"
	"time"
)

// Migration is one numbered SQL file.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	// Checksum is the hex SHA-256 of SQL.
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Source lists the migrations available to a Manager.
type Source interface {
	ScanMigrations() ([]Migration, error)
}

// Executor applies migrations and tracks them in schema_migrations.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	// ExecuteMigration runs migration in one transaction and records it.
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)
	GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error)
}
