package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RegistrationDeps bundles the collaborators of RegistrationService.
type RegistrationDeps struct {
	Store         StateStore
	Extractor     Extractor
	Calendar      CalendarAccessor
	Authorization *AuthorizationService
	Notifier      Notifier
}

// RegistrationSettings carries the configuration the workflow depends on.
type RegistrationSettings struct {
	ChannelID            string
	Mode                 AuthorizationMode
	AuthorizationTimeout time.Duration
}

// RegistrationService drives a user from the registration command through
// extraction to calendar event creation.
type RegistrationService struct {
	store     StateStore
	extractor Extractor
	calendar  CalendarAccessor
	auth      *AuthorizationService
	notifier  Notifier
	settings  RegistrationSettings
	logger    *slog.Logger
}

// NewRegistrationService constructs the workflow service.
func NewRegistrationService(deps RegistrationDeps, settings RegistrationSettings) *RegistrationService {
	return NewRegistrationServiceWithLogger(deps, settings, nil)
}

// NewRegistrationServiceWithLogger constructs the workflow service with a specified logger.
func NewRegistrationServiceWithLogger(deps RegistrationDeps, settings RegistrationSettings, logger *slog.Logger) *RegistrationService {
	if settings.Mode == "" {
		settings.Mode = AuthorizationDecoupled
	}
	if settings.AuthorizationTimeout <= 0 {
		settings.AuthorizationTimeout = 5 * time.Minute
	}
	return &RegistrationService{
		store:     deps.Store,
		extractor: deps.Extractor,
		calendar:  deps.Calendar,
		auth:      deps.Authorization,
		notifier:  deps.Notifier,
		settings:  settings,
		logger:    defaultLogger(logger),
	}
}

func (s *RegistrationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RegistrationService", operation, attrs...)
}

// MonitoredChannel returns the channel that accepts registrations.
func (s *RegistrationService) MonitoredChannel() string {
	return s.settings.ChannelID
}

// StartRegistration puts userID into AWAITING_INPUT. Commands issued outside
// the monitored channel are rejected without touching state. The returned
// text is the reply for the command.
func (s *RegistrationService) StartRegistration(ctx context.Context, userID, channelID string) (reply string, err error) {
	if s == nil {
		err = fmt.Errorf("RegistrationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "StartRegistration", "user_id", userID, "channel_id", channelID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "registration not started", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "awaiting event details")
	}()

	if channelID != s.settings.ChannelID {
		reply, err = MsgWrongChannel, ErrWrongChannel
		return
	}

	if setErr := s.store.SetState(ctx, userID, StateAwaitingInput); setErr != nil {
		reply, err = MsgStorageFailed, storageError("set state", setErr)
		return
	}

	reply = MsgRegistrationPrompt
	return
}

// CancelRegistration clears AWAITING_INPUT for userID. It never interrupts a
// message that is already being processed.
func (s *RegistrationService) CancelRegistration(ctx context.Context, userID string) (reply string, err error) {
	logger := s.loggerWith(ctx, "CancelRegistration", "user_id", userID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "registration not canceled", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration canceled")
	}()

	cleared, consumeErr := s.store.ConsumeAwaiting(ctx, userID)
	if consumeErr != nil {
		reply, err = MsgStorageFailed, storageError("consume state", consumeErr)
		return
	}
	if !cleared {
		reply, err = MsgNothingInProgress, ErrNothingInProgress
		return
	}
	reply = MsgRegistrationCanceled
	return
}

// HandleMessage processes a message from the monitored channel.
//
// The AWAITING_INPUT marker is consumed before any slow call, so a second
// message from the same user is redirected rather than processed twice.
// Without a credential the user receives a consent URL by direct message. With
// one, the text is extracted and every record is created independently; each
// record gets its own reply plus a summary when there is more than one.
func (s *RegistrationService) HandleMessage(ctx context.Context, msg Message) (result BatchResult, err error) {
	if s == nil {
		err = fmt.Errorf("RegistrationService is nil")
		return
	}

	userID := msg.Ref.UserID
	logger := s.loggerWith(ctx, "HandleMessage",
		"user_id", userID,
		"channel_id", msg.Ref.ChannelID,
		"message_id", msg.Ref.MessageID,
	)
	defer func() {
		if err != nil {
			level := slog.LevelError
			if errors.Is(err, ErrNotAwaitingInput) || errors.Is(err, ErrAuthorizationRequired) {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, "message not registered", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "message processed",
			"records", len(result.Outcomes),
			"succeeded", result.Succeeded(),
			"failed", result.Failed(),
		)
	}()

	consumed, consumeErr := s.store.ConsumeAwaiting(ctx, userID)
	if consumeErr != nil {
		err = storageError("consume state", consumeErr)
		s.reply(ctx, logger, msg.Ref, MsgStorageFailed)
		return
	}
	if !consumed {
		err = ErrNotAwaitingInput
		if s.notifier != nil {
			if hintErr := s.notifier.ReplyTransient(ctx, msg.Ref, MsgStartWithCommand); hintErr != nil {
				logger.WarnContext(ctx, "failed to send hint", "error", hintErr)
			}
		}
		return
	}

	blob, credErr := s.store.Credential(ctx, userID)
	if credErr != nil {
		err = storageError("load credential", credErr)
		s.reply(ctx, logger, msg.Ref, MsgStorageFailed)
		return
	}
	if blob == "" {
		blob, err = s.authorize(ctx, logger, msg.Ref)
		if err != nil {
			return
		}
	}

	records, extractErr := s.extractor.Extract(ctx, msg.Content)
	if extractErr != nil {
		err = fmt.Errorf("%w: %v", ErrExtractionFailed, extractErr)
		s.reply(ctx, logger, msg.Ref, extractionFailedMessage(extractErr))
		return
	}
	if validErr := ValidateRecords(records); validErr != nil {
		err = validErr
		s.reply(ctx, logger, msg.Ref, MsgNotUnderstood)
		return
	}

	service, refreshed, handleErr := s.calendar.ServiceHandle(ctx, blob)
	if refreshed != "" && refreshed != blob {
		if saveErr := s.store.SaveCredential(ctx, userID, refreshed); saveErr != nil {
			err = storageError("save refreshed credential", saveErr)
			s.reply(ctx, logger, msg.Ref, MsgStorageFailed)
			return
		}
		logger.DebugContext(ctx, "refreshed credential stored")
	}
	if handleErr != nil || service == nil {
		if handleErr == nil {
			handleErr = errors.New("no calendar service")
		}
		err = fmt.Errorf("%w: %w", ErrCalendarAccess, handleErr)
		if !errors.Is(handleErr, ErrCredentialRejected) {
			s.reply(ctx, logger, msg.Ref, MsgCalendarUnreachable)
			return
		}
		if clearErr := s.store.SaveCredential(ctx, userID, ""); clearErr != nil {
			logger.ErrorContext(ctx, "failed to clear rejected credential", "error", clearErr)
		}
		s.reply(ctx, logger, msg.Ref, MsgCalendarAccessFailed)
		return
	}

	result = s.createAll(ctx, logger, msg.Ref, service, records)
	return
}

// authorize starts the consent handshake for a message that arrived without
// a credential. In decoupled mode it always stops the workflow; in blocking
// mode it returns the new credential once the callback completes.
func (s *RegistrationService) authorize(ctx context.Context, logger *slog.Logger, ref MessageRef) (string, error) {
	if s.auth == nil {
		s.reply(ctx, logger, ref, MsgAuthorizationOffline)
		return "", ErrAuthorizationUnavailable
	}

	wait := s.settings.Mode == AuthorizationBlocking
	url, session, err := s.auth.BeginAuthorization(ctx, ref.UserID, wait)
	if err != nil {
		s.reply(ctx, logger, ref, MsgAuthorizationOffline)
		return "", err
	}

	if dmErr := s.notifier.SendDirect(ctx, ref.UserID, authorizationDirectMessage(url)); dmErr != nil {
		s.auth.Discard(session.Token)
		s.reply(ctx, logger, ref, MsgDirectMessageRefused)
		if errors.Is(dmErr, ErrDirectMessageRefused) {
			return "", dmErr
		}
		return "", fmt.Errorf("%w: %v", ErrDirectMessageRefused, dmErr)
	}

	if !wait {
		s.reply(ctx, logger, ref, MsgAuthorizationNeeded)
		return "", ErrAuthorizationRequired
	}

	s.reply(ctx, logger, ref, MsgAuthorizationWaiting)
	if waitErr := s.auth.Await(ctx, session.Token, s.settings.AuthorizationTimeout); waitErr != nil {
		if errors.Is(waitErr, ErrAuthorizationTimeout) {
			if dmErr := s.notifier.SendDirect(ctx, ref.UserID, MsgTimedOut); dmErr != nil {
				logger.WarnContext(ctx, "failed to send timeout notice", "error", dmErr)
			}
		}
		return "", waitErr
	}

	blob, err := s.store.Credential(ctx, ref.UserID)
	if err != nil {
		s.reply(ctx, logger, ref, MsgStorageFailed)
		return "", storageError("load credential", err)
	}
	if blob == "" {
		s.reply(ctx, logger, ref, MsgCalendarAccessFailed)
		return "", ErrAuthorizationFailed
	}
	return blob, nil
}

func (s *RegistrationService) createAll(ctx context.Context, logger *slog.Logger, ref MessageRef, service CalendarService, records []EventRecord) BatchResult {
	result := BatchResult{Outcomes: make([]RecordOutcome, 0, len(records))}

	for i, record := range records {
		outcome := RecordOutcome{Record: record}
		completed, err := CompleteEventWindow(record)
		if err == nil {
			outcome.Record = completed
			outcome.Event, err = service.CreateEvent(ctx, completed)
		}
		outcome.Err = err
		result.Outcomes = append(result.Outcomes, outcome)

		if err != nil {
			logger.WarnContext(ctx, "failed to create event", "index", i, "summary", record.Summary, "error", err)
			s.reply(ctx, logger, ref, recordFailedMessage(outcome.Record))
			continue
		}
		if s.notifier != nil {
			if replyErr := s.notifier.ReplyCreated(ctx, ref, outcome.Record, outcome.Event); replyErr != nil {
				logger.WarnContext(ctx, "failed to send reply", "error", replyErr)
			}
		}
	}

	if len(records) > 1 {
		s.reply(ctx, logger, ref, batchSummaryMessage(result))
	}
	return result
}

func (s *RegistrationService) reply(ctx context.Context, logger *slog.Logger, ref MessageRef, text string) {
	if s.notifier == nil || strings.TrimSpace(text) == "" {
		return
	}
	if err := s.notifier.Reply(ctx, ref, text); err != nil {
		logger.WarnContext(ctx, "failed to send reply", "error", err)
	}
}
