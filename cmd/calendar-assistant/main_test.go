package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/config"
	"github.com/example/calendar-assistant/internal/persistence"
	"github.com/example/calendar-assistant/internal/testfixtures"
)

func TestStateStoreAdapter(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t, testfixtures.WithEncryptionKey("adapter-secret"))
	store := newStateStoreAdapter(harness.Storage, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("absent rows read as NONE and empty credential", func(t *testing.T) {
		state, err := store.CurrentState(ctx, "nobody")
		if err != nil || state != application.StateNone {
			t.Fatalf("expected NONE, got %q %v", state, err)
		}
		blob, err := store.Credential(ctx, "nobody")
		if err != nil || blob != "" {
			t.Fatalf("expected empty credential, got %q %v", blob, err)
		}
	})

	t.Run("awaiting state round trips through the stored value", func(t *testing.T) {
		if err := store.SetState(ctx, "user-1", application.StateAwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		stored, err := harness.Storage.GetState(ctx, "user-1")
		if err != nil || stored.State != persistence.AwaitingInput {
			t.Fatalf("expected stored %q, got %+v %v", persistence.AwaitingInput, stored, err)
		}
		state, err := store.CurrentState(ctx, "user-1")
		if err != nil || state != application.StateAwaitingInput {
			t.Fatalf("expected AWAITING_INPUT, got %q %v", state, err)
		}

		if err := store.SetState(ctx, "user-1", application.StateNone); err != nil {
			t.Fatalf("SetState NONE: %v", err)
		}
		if state, _ := store.CurrentState(ctx, "user-1"); state != application.StateNone {
			t.Fatalf("setting NONE must clear the row, got %q", state)
		}
		if err := store.ClearState(ctx, "user-1"); err != nil {
			t.Fatalf("ClearState must be idempotent: %v", err)
		}
	})

	t.Run("consume observes AWAITING_INPUT once", func(t *testing.T) {
		if err := store.SetState(ctx, "user-2", application.StateAwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		first, err := store.ConsumeAwaiting(ctx, "user-2")
		if err != nil || !first {
			t.Fatalf("expected first consume to win, got %v %v", first, err)
		}
		second, err := store.ConsumeAwaiting(ctx, "user-2")
		if err != nil || second {
			t.Fatalf("expected second consume to lose, got %v %v", second, err)
		}
	})

	t.Run("stale rows expire only past the cutoff", func(t *testing.T) {
		if err := store.SetState(ctx, "user-3", application.StateAwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		harness.Clock.Advance(5 * time.Minute)

		stale, err := store.ListStale(ctx, 5*time.Minute)
		if err != nil || len(stale) != 0 {
			t.Fatalf("row exactly at the threshold must not be stale, got %v %v", stale, err)
		}

		harness.Clock.Advance(time.Second)
		stale, err = store.ListStale(ctx, 5*time.Minute)
		if err != nil || len(stale) != 1 || stale[0] != "user-3" {
			t.Fatalf("expected user-3 to be stale, got %v %v", stale, err)
		}

		cutoff := harness.Clock.Now().Add(-5 * time.Minute)
		expired, err := store.ExpireAwaiting(ctx, "user-3", cutoff)
		if err != nil || !expired {
			t.Fatalf("expected expiry, got %v %v", expired, err)
		}
	})

	t.Run("credentials are saved, cleared and read back", func(t *testing.T) {
		blob := testfixtures.CredentialBlob("user-4", harness.Clock.Now())
		if err := store.SaveCredential(ctx, "user-4", blob); err != nil {
			t.Fatalf("SaveCredential: %v", err)
		}
		got, err := store.Credential(ctx, "user-4")
		if err != nil || got != blob {
			t.Fatalf("expected stored blob, got %q %v", got, err)
		}

		if err := store.SaveCredential(ctx, "user-4", ""); err != nil {
			t.Fatalf("clear credential: %v", err)
		}
		got, err = store.Credential(ctx, "user-4")
		if err != nil || got != "" {
			t.Fatalf("cleared credential must read as empty, got %q %v", got, err)
		}
	})
}

func TestStateStoreAdapter_DiscardsCredentialSealedWithAnotherKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.sqlite3")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	before := testfixtures.NewSQLiteHarness(t, testfixtures.WithDatabasePath(path), testfixtures.WithEncryptionKey("key-a"))
	if err := newStateStoreAdapter(before.Storage, logger).SaveCredential(ctx, "user-1", testfixtures.CredentialBlob("user-1", time.Now())); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	before.Close()

	for _, key := range []string{"key-b", ""} {
		after := testfixtures.NewSQLiteHarness(t, testfixtures.WithDatabasePath(path), testfixtures.WithEncryptionKey(key))
		store := newStateStoreAdapter(after.Storage, logger)

		blob, err := store.Credential(ctx, "user-1")
		if err != nil || blob != "" {
			t.Fatalf("key %q: expected the credential to read as absent, got %q %v", key, blob, err)
		}
		stored, err := after.Storage.GetCredential(ctx, "user-1")
		if err != nil || stored.Blob != "" {
			t.Fatalf("key %q: expected the row to be cleared, got %+v %v", key, stored, err)
		}
		after.Close()

		if key == "key-b" {
			// restore a sealed row for the keyless case
			again := testfixtures.NewSQLiteHarness(t, testfixtures.WithDatabasePath(path), testfixtures.WithEncryptionKey("key-a"))
			if err := again.Storage.SaveCredential(ctx, "user-1", testfixtures.CredentialBlob("user-1", time.Now())); err != nil {
				t.Fatalf("SaveCredential: %v", err)
			}
			again.Close()
		}
	}
}

func TestToConversationState(t *testing.T) {
	t.Parallel()

	cases := map[string]application.ConversationState{
		persistence.AwaitingInput: application.StateAwaitingInput,
		"":                        application.StateNone,
		"legacy_state":            application.StateNone,
	}
	for stored, want := range cases {
		if got := toConversationState(stored); got != want {
			t.Fatalf("toConversationState(%q) = %q, want %q", stored, got, want)
		}
	}
	if toStoredState(application.StateAwaitingInput) != persistence.AwaitingInput {
		t.Fatal("AWAITING_INPUT must map to the stored marker")
	}
}

func TestStartCallbackListener_MarksUnavailableWhenAddressIsTaken(t *testing.T) {
	t.Parallel()

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer occupied.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := application.NewAuthorizationServiceWithLogger(nil, testfixtures.NewMemoryStateStore(nil), nil, application.NewSessionRegistry(time.Minute, nil, nil), logger)

	var wg sync.WaitGroup
	cfg := config.Config{ListenAddr: occupied.Addr().String(), CallbackPath: "/oauth2/callback"}
	startCallbackListener(context.Background(), &wg, cfg, authService, logger)
	wg.Wait()

	if authService.Available() {
		t.Fatal("authorization must be unavailable when the listener cannot bind")
	}
}

func TestStartCallbackListener_ServesUntilCanceled(t *testing.T) {
	t.Parallel()

	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := probe.Addr().String()
	_ = probe.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := application.NewAuthorizationServiceWithLogger(nil, testfixtures.NewMemoryStateStore(nil), nil, application.NewSessionRegistry(time.Minute, nil, nil), logger)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	startCallbackListener(ctx, &wg, config.Config{ListenAddr: addr, CallbackPath: "/oauth2/callback"}, authService, logger)

	cancel()
	wg.Wait()
	if !authService.Available() {
		t.Fatal("a clean shutdown must not mark authorization unavailable")
	}
}

func TestServe_StopsBackgroundServicesWhenBotFails(t *testing.T) {
	t.Parallel()

	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := reserved.Addr().String()
	_ = reserved.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := testfixtures.NewMemoryStateStore(nil)
	sessions := application.NewSessionRegistry(time.Minute, nil, nil)
	authService := application.NewAuthorizationServiceWithLogger(nil, store, nil, sessions, logger)
	sweeper := application.NewSweeperWithLogger(store, nil, sessions, time.Minute, time.Hour, nil, logger)

	openFailed := errors.New("websocket: bad handshake")
	done := make(chan error, 1)
	go func() {
		cfg := config.Config{ListenAddr: addr, CallbackPath: "/oauth2/callback"}
		done <- serve(context.Background(), cfg, authService, sweeper, logger, func(context.Context) error {
			return openFailed
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, openFailed) {
			t.Fatalf("expected the bot error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after the bot failed")
	}

	rebound, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("callback listener still holds %s: %v", addr, err)
	}
	_ = rebound.Close()
}

func TestNewLoggerWritesJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info must be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"key":"value"`) {
		t.Fatalf("expected JSON record, got %s", out)
	}
}

func TestDisplayAppname(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	displayAppname(&buf, "cal")
	if strings.TrimSpace(buf.String()) == "" {
		t.Fatal("expected a banner")
	}
}
