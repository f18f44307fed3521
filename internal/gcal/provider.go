package gcal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"github.com/example/calendar-assistant/internal/application"
)

// Provider implements application.AuthorizationProvider for Google accounts.
type Provider struct {
	config *oauth2.Config
}

var _ application.AuthorizationProvider = (*Provider)(nil)

// LoadProvider reads an OAuth client secret file downloaded from the Google
// Cloud console.
func LoadProvider(clientSecretFile, redirectURL string) (*Provider, error) {
	data, err := os.ReadFile(clientSecretFile)
	if err != nil {
		return nil, fmt.Errorf("read client secret file: %w", err)
	}
	return NewProvider(data, redirectURL)
}

// NewProvider builds a provider from client secret JSON. The redirect URL
// must match one registered for the client.
func NewProvider(clientSecretJSON []byte, redirectURL string) (*Provider, error) {
	config, err := google.ConfigFromJSON(clientSecretJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}
	if redirectURL == "" {
		return nil, errors.New("redirect url is empty")
	}
	config.RedirectURL = redirectURL
	return &Provider{config: config}, nil
}

// Config exposes the OAuth configuration.
func (p *Provider) Config() *oauth2.Config {
	return p.config
}

// AuthorizationURL returns the consent URL carrying correlationToken as the
// OAuth state. Offline access with forced consent makes Google issue a
// refresh token every time.
func (p *Provider) AuthorizationURL(correlationToken string) string {
	return p.config.AuthCodeURL(correlationToken,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// ExchangeCode trades an authorization code for a credential blob.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	return EncodeToken(token)
}
