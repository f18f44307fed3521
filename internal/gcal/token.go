package gcal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// ErrEmptyCredential is returned when decoding the cleared credential.
var ErrEmptyCredential = errors.New("gcal: empty credential")

// EncodeToken serializes an OAuth token as a credential blob.
func EncodeToken(token *oauth2.Token) (string, error) {
	if token == nil || token.AccessToken == "" {
		return "", errors.New("gcal: token has no access token")
	}
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return string(data), nil
}

// DecodeToken parses a credential blob produced by EncodeToken.
func DecodeToken(blob string) (*oauth2.Token, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, ErrEmptyCredential
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(blob), &token); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, errors.New("gcal: credential has neither access nor refresh token")
	}
	return &token, nil
}
