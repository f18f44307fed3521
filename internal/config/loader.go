package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// AuthorizationMode values accepted by AUTHORIZATION_MODE.
const (
	AuthorizationDecoupled = "decoupled"
	AuthorizationBlocking  = "blocking"
)

// Config captures environment driven configuration values for the assistant.
// It is built once at startup and passed by value.
type Config struct {
	DiscordToken     string
	TargetChannelID  string
	DiscordGuildID   string
	ClientSecretFile string
	RedirectURI      string
	ListenAddr       string
	CallbackPath     string
	GeminiAPIKey     string
	GeminiModel      string
	DatabaseDSN      string
	EncryptionKey    string

	StateTimeout         time.Duration
	SweepInterval        time.Duration
	AuthorizationMode    string
	AuthorizationTimeout time.Duration
	CalendarID           string
	TimeZone             *time.Location
	LogLevel             slog.Level
}

// LoadDotEnv reads path (".env" when empty) into the process environment
// without overriding variables that are already set. A missing file is not an
// error; the returned bool reports whether a file was read.
func LoadDotEnv(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// Load parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields while validating required
// values and reporting localized error messages for missing entries.
func Load() (Config, error) {
	return Parse(os.Getenv)
}

// Parse builds a Config from getenv.
func Parse(getenv func(string) string) (Config, error) {
	cfg := Config{
		GeminiModel:          "gemini-1.5-flash",
		DatabaseDSN:          "file:/data/tokens.sqlite3",
		StateTimeout:         5 * time.Minute,
		SweepInterval:        60 * time.Second,
		AuthorizationMode:    AuthorizationDecoupled,
		AuthorizationTimeout: 5 * time.Minute,
		CalendarID:           "primary",
		LogLevel:             slog.LevelInfo,
	}

	missing := make([]string, 0, 5)
	invalid := make([]string, 0, 4)

	value := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}
	required := func(key string, dst *string) {
		if v := value(key); v != "" {
			*dst = v
			return
		}
		missing = append(missing, key)
	}
	optional := func(key string, dst *string) {
		if v := value(key); v != "" {
			*dst = v
		}
	}

	required("DISCORD_BOT_TOKEN", &cfg.DiscordToken)
	required("TARGET_CHANNEL_ID", &cfg.TargetChannelID)
	optional("DISCORD_GUILD_ID", &cfg.DiscordGuildID)
	required("GOOGLE_CLIENT_SECRET_FILE", &cfg.ClientSecretFile)
	required("OAUTH_REDIRECT_URI", &cfg.RedirectURI)
	required("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	optional("GEMINI_MODEL", &cfg.GeminiModel)
	optional("DATABASE_DSN", &cfg.DatabaseDSN)
	optional("CREDENTIAL_ENCRYPTION_KEY", &cfg.EncryptionKey)
	optional("CALENDAR_ID", &cfg.CalendarID)

	if cfg.TargetChannelID != "" {
		if _, err := strconv.ParseUint(cfg.TargetChannelID, 10, 64); err != nil {
			invalid = append(invalid, "TARGET_CHANNEL_ID")
		}
	}

	if cfg.RedirectURI != "" {
		listen, path, err := splitRedirect(cfg.RedirectURI)
		if err != nil {
			invalid = append(invalid, "OAUTH_REDIRECT_URI")
		} else {
			cfg.ListenAddr, cfg.CallbackPath = listen, path
		}
	}
	optional("OAUTH_LISTEN_ADDR", &cfg.ListenAddr)

	if v := value("STATE_TIMEOUT_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			invalid = append(invalid, "STATE_TIMEOUT_MINUTES")
		} else {
			cfg.StateTimeout = time.Duration(minutes) * time.Minute
		}
	}

	if v := value("SWEEP_INTERVAL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			invalid = append(invalid, "SWEEP_INTERVAL_SECONDS")
		} else {
			cfg.SweepInterval = time.Duration(seconds) * time.Second
		}
	}

	if v := strings.ToLower(value("AUTHORIZATION_MODE")); v != "" {
		if v != AuthorizationDecoupled && v != AuthorizationBlocking {
			invalid = append(invalid, "AUTHORIZATION_MODE")
		} else {
			cfg.AuthorizationMode = v
		}
	}

	if v := value("AUTHORIZATION_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "AUTHORIZATION_TIMEOUT")
		} else {
			cfg.AuthorizationTimeout = timeout
		}
	}

	zone := value("CALENDAR_TIME_ZONE")
	if zone == "" {
		zone = "Asia/Tokyo"
	}
	if loc, err := time.LoadLocation(zone); err != nil {
		invalid = append(invalid, "CALENDAR_TIME_ZONE")
	} else {
		cfg.TimeZone = loc
	}

	if v := value("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// splitRedirect derives the listen address and callback path from the
// redirect URI registered with the OAuth client.
func splitRedirect(raw string) (listen, path string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", "", errors.New("redirect uri has no host")
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return net.JoinHostPort(host, port), path, nil
}
