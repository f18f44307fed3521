package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/logging"
)

// Generator sends a prompt to a language model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Extractor implements application.Extractor on top of a Generator.
type Extractor struct {
	generator Generator
	now       func() time.Time
	location  *time.Location
	logger    *slog.Logger
}

var _ application.Extractor = (*Extractor)(nil)

// Option customises an Extractor.
type Option func(*Extractor)

// WithClock overrides the source of today's date in prompts.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone used to compute today's date.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an extractor backed by generator.
func New(generator Generator, opts ...Option) *Extractor {
	e := &Extractor{
		generator: generator,
		now:       time.Now,
		location:  time.Local,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the model for the events described by text.
func (e *Extractor) Extract(ctx context.Context, text string) ([]application.EventRecord, error) {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = e.logger
	}
	logger = logger.With("component", "extraction")

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty message")
	}

	prompt := BuildPrompt(text, e.now().In(e.location))
	started := time.Now()
	response, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "model request failed", "error", err)
		return nil, fmt.Errorf("予期せぬエラー: %w", err)
	}

	records, err := Parse(response)
	if err != nil {
		logger.WarnContext(ctx, "model response rejected", "error", err, "duration", time.Since(started))
		return nil, err
	}

	logger.InfoContext(ctx, "events extracted", "count", len(records), "duration", time.Since(started))
	return records, nil
}
