package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/calendar-assistant/internal/persistence/sqlstore/migration"
	"github.com/example/calendar-assistant/internal/vault"
)

//go:embed migrations
var migrationFS embed.FS

// Storage is the relational store for conversation state and credentials.
// Every operation is serialized behind a single process-wide mutex.
type Storage struct {
	mu      sync.Mutex
	db      *sql.DB
	dialect dialect
	sealer  vault.Sealer
	now     func() time.Time
	logger  *slog.Logger
}

// Option customises a Storage.
type Option func(*Storage)

// WithSealer encrypts credential blobs at rest.
func WithSealer(sealer vault.Sealer) Option {
	return func(s *Storage) {
		if sealer != nil {
			s.sealer = sealer
		}
	}
}

// WithClock overrides the time source used for state timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for migrations and storage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to the database named by dsn. postgres:// and postgresql://
// URLs use PostgreSQL, anything else is treated as a SQLite path or file: URI.
func Open(ctx context.Context, dsn string, opts ...Option) (*Storage, error) {
	d := dialectForDSN(dsn)
	db, err := openDatabase(ctx, d, dsn)
	if err != nil {
		return nil, err
	}

	plain, _ := vault.New("")
	s := &Storage{
		db:      db,
		dialect: d,
		sealer:  plain,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sqlstore", "dialect", d.name)
	return s, nil
}

// Migrate applies the embedded schema migrations for the active dialect.
func (s *Storage) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manager := migration.NewManager(
		migration.NewScanner(migrationFS, s.dialect.migrationDir),
		migration.NewExecutor(s.db, s.dialect.rebind),
		s.logger,
	)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to migrate %s schema: %w", s.dialect.name, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect reports the database flavour in use.
func (s *Storage) Dialect() string {
	return s.dialect.name
}

func (s *Storage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Storage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Storage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Storage) currentTime() time.Time {
	return s.now().UTC()
}
