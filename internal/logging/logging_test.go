package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatal("expected no logger in a bare context")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected the attached logger")
	}

	if got := ContextWithLogger(ctx, nil); FromContext(got) != logger {
		t.Fatal("attaching nil must keep the previous logger")
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, logger := Scope(context.Background(), base, "request_id", "req-1")
	if FromContext(ctx) != logger {
		t.Fatal("scoped logger must be attached to the context")
	}

	logger.Info("handled")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("expected scoped attribute in output, got %q", buf.String())
	}

	if _, fallback := Scope(context.Background(), nil); fallback == nil {
		t.Fatal("nil base must fall back to the default logger")
	}
}
