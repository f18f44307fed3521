package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/calendar-assistant/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic tokens and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("token")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the token generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger sets the logger passed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// AssistantDeps captures the collaborators of a fully wired assistant.
type AssistantDeps struct {
	Store     application.StateStore
	Extractor application.Extractor
	Calendar  application.CalendarAccessor
	Provider  application.AuthorizationProvider
	Notifier  application.Notifier
	ChannelID string
	Mode      application.AuthorizationMode
	// SessionTTL doubles as the blocking wait. Zero means five minutes.
	SessionTTL time.Duration
	// StateTimeout is the sweeper threshold. Zero means five minutes.
	StateTimeout time.Duration
}

// Assistant groups the services built by NewAssistant.
type Assistant struct {
	Sessions      *application.SessionRegistry
	Authorization *application.AuthorizationService
	Registration  *application.RegistrationService
	Sweeper       *application.Sweeper
}

// NewAssistant wires the application services the way the binary does.
func (f *ServiceFactory) NewAssistant(deps AssistantDeps) Assistant {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	stale := deps.StateTimeout
	if stale <= 0 {
		stale = 5 * time.Minute
	}
	mode := deps.Mode
	if mode == "" {
		mode = application.AuthorizationDecoupled
	}

	sessions := application.NewSessionRegistry(ttl, f.Clock.NowFunc(), f.IDGenerator.NextFunc())
	auth := application.NewAuthorizationServiceWithLogger(deps.Provider, deps.Store, deps.Notifier, sessions, f.Logger)
	registration := application.NewRegistrationServiceWithLogger(application.RegistrationDeps{
		Store:         deps.Store,
		Extractor:     deps.Extractor,
		Calendar:      deps.Calendar,
		Authorization: auth,
		Notifier:      deps.Notifier,
	}, application.RegistrationSettings{
		ChannelID:            deps.ChannelID,
		Mode:                 mode,
		AuthorizationTimeout: ttl,
	}, f.Logger)
	sweeper := application.NewSweeperWithLogger(deps.Store, deps.Notifier, sessions, stale, time.Minute, f.Clock.NowFunc(), f.Logger)

	return Assistant{
		Sessions:      sessions,
		Authorization: auth,
		Registration:  registration,
		Sweeper:       sweeper,
	}
}
