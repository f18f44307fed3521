package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/calendar-assistant/internal/persistence"
	"github.com/example/calendar-assistant/internal/testfixtures"
)

type repositories interface {
	persistence.StateRepository
	persistence.CredentialRepository
}

func newRepositories(t *testing.T) (repositories, *testfixtures.Clock) {
	t.Helper()
	harness := testfixtures.NewSQLiteHarness(t)
	return harness.Storage, harness.Clock
}

func TestStateRepositoryContract(t *testing.T) {
	t.Parallel()

	t.Run("missing rows are ErrNotFound", func(t *testing.T) {
		t.Parallel()
		repo, _ := newRepositories(t)

		if _, err := repo.GetState(context.Background(), "ghost"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty keys are rejected", func(t *testing.T) {
		t.Parallel()
		repo, _ := newRepositories(t)

		if err := repo.SetState(context.Background(), "", persistence.AwaitingInput); !errors.Is(err, persistence.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for empty user, got %v", err)
		}
		if err := repo.SetState(context.Background(), "user-1", ""); !errors.Is(err, persistence.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for empty state, got %v", err)
		}
	})

	t.Run("set refreshes the timestamp", func(t *testing.T) {
		t.Parallel()
		repo, clock := newRepositories(t)
		ctx := context.Background()

		if err := repo.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		later := clock.Advance(3 * time.Minute)
		if err := repo.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
			t.Fatalf("SetState again: %v", err)
		}

		stored, err := repo.GetState(ctx, "user-1")
		if err != nil {
			t.Fatalf("GetState: %v", err)
		}
		if !stored.UpdatedAt.Equal(later) {
			t.Fatalf("expected updated_at %v, got %v", later, stored.UpdatedAt)
		}
	})

	t.Run("consume only matches the expected state", func(t *testing.T) {
		t.Parallel()
		repo, _ := newRepositories(t)
		ctx := context.Background()

		if err := repo.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		if ok, err := repo.ConsumeState(ctx, "user-1", "other"); err != nil || ok {
			t.Fatalf("expected mismatch to leave the row, got %v %v", ok, err)
		}
		if ok, err := repo.ConsumeState(ctx, "user-1", persistence.AwaitingInput); err != nil || !ok {
			t.Fatalf("expected consume to succeed, got %v %v", ok, err)
		}
	})

	t.Run("expire skips rows refreshed after the cutoff", func(t *testing.T) {
		t.Parallel()
		repo, clock := newRepositories(t)
		ctx := context.Background()

		if err := repo.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
			t.Fatalf("SetState: %v", err)
		}
		cutoff := clock.Now()
		clock.Advance(time.Minute)
		if err := repo.SetState(ctx, "user-1", persistence.AwaitingInput); err != nil {
			t.Fatalf("SetState refresh: %v", err)
		}

		if ok, err := repo.ExpireState(ctx, "user-1", persistence.AwaitingInput, cutoff); err != nil || ok {
			t.Fatalf("refreshed row must survive, got %v %v", ok, err)
		}
	})
}

func TestCredentialRepositoryContract(t *testing.T) {
	t.Parallel()

	repo, _ := newRepositories(t)
	ctx := context.Background()

	if _, err := repo.GetCredential(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SaveCredential(ctx, "", "blob"); !errors.Is(err, persistence.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	if err := repo.SaveCredential(ctx, "user-1", "first"); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	if err := repo.SaveCredential(ctx, "user-1", "second"); err != nil {
		t.Fatalf("SaveCredential overwrite: %v", err)
	}
	stored, err := repo.GetCredential(ctx, "user-1")
	if err != nil || stored.Blob != "second" || stored.UserID != "user-1" {
		t.Fatalf("expected latest blob, got %+v %v", stored, err)
	}
}
