package testfixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/calendar-assistant/internal/persistence/sqlstore"
	"github.com/example/calendar-assistant/internal/vault"
)

// SQLiteHarness provides a migrated SQLite store on a temporary file together
// with the clock that stamps its rows.
type SQLiteHarness struct {
	Storage *sqlstore.Storage
	Clock   *Clock

	cleanup func()
}

// HarnessOption configures NewSQLiteHarness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	secret string
	clock  *Clock
	path   string
}

// WithEncryptionKey seals credentials with secret.
func WithEncryptionKey(secret string) HarnessOption {
	return func(c *harnessConfig) { c.secret = secret }
}

// WithDatabasePath opens path instead of a fresh file, so a test can reopen
// a database another harness wrote.
func WithDatabasePath(path string) HarnessOption {
	return func(c *harnessConfig) { c.path = path }
}

// WithHarnessClock stamps rows with clock instead of a fresh one.
func WithHarnessClock(clock *Clock) HarnessOption {
	return func(c *harnessConfig) { c.clock = clock }
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a store under tb.TempDir. Close is
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB, opts ...HarnessOption) *SQLiteHarness {
	tb.Helper()

	cfg := harnessConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(ReferenceTime())
	}

	sealer, err := vault.New(cfg.secret)
	if err != nil {
		tb.Fatalf("failed to create sealer: %v", err)
	}

	if cfg.path == "" {
		cfg.path = filepath.Join(tb.TempDir(), "tokens.sqlite3")
	}
	dsn := fmt.Sprintf("file:%s", cfg.path)
	storage, err := sqlstore.Open(context.Background(), dsn,
		sqlstore.WithSealer(sealer),
		sqlstore.WithClock(cfg.clock.Now),
	)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		Clock:   cfg.clock,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
