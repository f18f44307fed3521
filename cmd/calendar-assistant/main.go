package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/example/calendar-assistant/internal/application"
	"github.com/example/calendar-assistant/internal/config"
	"github.com/example/calendar-assistant/internal/discord"
	"github.com/example/calendar-assistant/internal/extraction"
	"github.com/example/calendar-assistant/internal/gcal"
	httptransport "github.com/example/calendar-assistant/internal/http"
	"github.com/example/calendar-assistant/internal/persistence/sqlstore"
	"github.com/example/calendar-assistant/internal/vault"
)

const appName = "calendar assistant"

func main() {
	displayAppname(os.Stderr, appName)

	if loaded, err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else if loaded {
		fmt.Fprintln(os.Stderr, "loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("calendar assistant stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("calendar assistant stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	sealer, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("create credential sealer: %w", err)
	}
	if cfg.EncryptionKey == "" {
		logger.Warn("CREDENTIAL_ENCRYPTION_KEY is not set; credentials are stored unsealed")
	}

	storage, err := sqlstore.Open(ctx, cfg.DatabaseDSN, sqlstore.WithSealer(sealer), sqlstore.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("storage ready", "dialect", storage.Dialect())

	provider, err := gcal.LoadProvider(cfg.ClientSecretFile, cfg.RedirectURI)
	if err != nil {
		return fmt.Errorf("load oauth client: %w", err)
	}

	generator, err := extraction.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}
	defer func() {
		if cerr := generator.Close(); cerr != nil {
			logger.Error("failed to close gemini client", "error", cerr)
		}
	}()

	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	now := time.Now
	store := newStateStoreAdapter(storage, logger)
	notifier := discord.NewNotifier(session, discord.WithNotifierLogger(logger))
	extractor := extraction.New(generator,
		extraction.WithLocation(cfg.TimeZone),
		extraction.WithLogger(logger),
	)
	accessor := gcal.NewAccessor(provider, cfg.CalendarID, cfg.TimeZone)

	sessions := application.NewSessionRegistry(cfg.AuthorizationTimeout, now, nil)
	authService := application.NewAuthorizationServiceWithLogger(provider, store, notifier, sessions, logger)
	registration := application.NewRegistrationServiceWithLogger(application.RegistrationDeps{
		Store:         store,
		Extractor:     extractor,
		Calendar:      accessor,
		Authorization: authService,
		Notifier:      notifier,
	}, application.RegistrationSettings{
		ChannelID:            cfg.TargetChannelID,
		Mode:                 application.AuthorizationMode(cfg.AuthorizationMode),
		AuthorizationTimeout: cfg.AuthorizationTimeout,
	}, logger)
	sweeper := application.NewSweeperWithLogger(store, notifier, sessions, cfg.StateTimeout, cfg.SweepInterval, now, logger)

	bot := discord.NewBotWithLogger(session, registration, logger)
	logger.Info("starting discord bot",
		"channel_id", cfg.TargetChannelID,
		"authorization_mode", cfg.AuthorizationMode,
		"state_timeout", cfg.StateTimeout,
	)
	return serve(ctx, cfg, authService, sweeper, logger, func(ctx context.Context) error {
		return discord.Run(ctx, session, bot, cfg.DiscordGuildID, logger)
	})
}

// serve runs the callback listener and the sweeper for as long as runBot does.
// Background services stop when runBot returns, including on error.
func serve(ctx context.Context, cfg config.Config, authService *application.AuthorizationService, sweeper *application.Sweeper, logger *slog.Logger, runBot func(context.Context) error) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startCallbackListener(ctx, &wg, cfg, authService, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	return runBot(ctx)
}

// startCallbackListener serves the OAuth redirect target. When the address
// cannot be bound, authorization is marked unavailable and chat keeps working.
func startCallbackListener(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, authService *application.AuthorizationService, logger *slog.Logger) {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to start callback listener", "addr", cfg.ListenAddr, "error", err)
		authService.MarkUnavailable(err)
		return
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		CallbackPath: cfg.CallbackPath,
		Callback:     httptransport.NewCallbackHandler(authService, logger),
		Middleware: []func(next http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})
	server := httptransport.NewServer(router)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Serve(ctx, server, listener, logger); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Error("callback listener stopped", "error", err)
			authService.MarkUnavailable(err)
		}
	}()
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func displayAppname(w io.Writer, name string) {
	banner := figure.NewFigure(name, "cybermedium", true)
	fmt.Fprintln(w, banner.String())
}
