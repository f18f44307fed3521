package application

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper expires AWAITING_INPUT states that were never answered and prunes
// authorization sessions that were never completed.
type Sweeper struct {
	store     StateStore
	notifier  Notifier
	sessions  *SessionRegistry
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewSweeper constructs a sweeper. sessions may be nil.
func NewSweeper(store StateStore, notifier Notifier, sessions *SessionRegistry, threshold, interval time.Duration, now func() time.Time) *Sweeper {
	return NewSweeperWithLogger(store, notifier, sessions, threshold, interval, now, nil)
}

// NewSweeperWithLogger constructs a sweeper with a specified logger.
func NewSweeperWithLogger(store StateStore, notifier Notifier, sessions *SessionRegistry, threshold, interval time.Duration, now func() time.Time, logger *slog.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}
	return &Sweeper{
		store:     store,
		notifier:  notifier,
		sessions:  sessions,
		threshold: threshold,
		interval:  interval,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// Run sweeps on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started",
		"service", "Sweeper",
		"interval", s.interval,
		"threshold", s.threshold,
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(context.WithoutCancel(ctx), "sweeper stopped", "service", "Sweeper")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "sweep failed", "service", "Sweeper", "error", err, "error_kind", ErrorKind(err))
			}
		}
	}
}

// SweepOnce performs one pass and returns the users whose state expired. A
// user is notified only when this pass actually removed their state, so a
// reply that raced the sweep is either processed or timed out, never both.
func (s *Sweeper) SweepOnce(ctx context.Context) (expired []string, err error) {
	logger := serviceLogger(ctx, s.logger, "Sweeper", "SweepOnce")

	cutoff := s.now().Add(-s.threshold)
	stale, listErr := s.store.ListStale(ctx, s.threshold)
	if listErr != nil {
		return nil, storageError("list stale", listErr)
	}

	for _, userID := range stale {
		removed, expireErr := s.store.ExpireAwaiting(ctx, userID, cutoff)
		if expireErr != nil {
			logger.ErrorContext(ctx, "failed to expire state", "user_id", userID, "error", expireErr)
			if err == nil {
				err = storageError("expire state", expireErr)
			}
			continue
		}
		if !removed {
			continue
		}
		expired = append(expired, userID)
		s.notify(ctx, logger, userID, MsgStateExpired)
	}

	if s.sessions != nil {
		for _, session := range s.sessions.PruneExpired() {
			logger.InfoContext(ctx, "authorization session expired", "user_id", session.UserID)
			s.notify(ctx, logger, session.UserID, MsgTimedOut)
		}
	}

	if len(expired) > 0 {
		logger.InfoContext(ctx, "expired waiting states", "count", len(expired))
	}
	return expired, err
}

func (s *Sweeper) notify(ctx context.Context, logger *slog.Logger, userID, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendDirect(ctx, userID, text); err != nil {
		logger.WarnContext(ctx, "failed to notify user", "user_id", userID, "error", err, "error_kind", ErrorKind(err))
	}
}
