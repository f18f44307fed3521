// Package vault seals provider credential blobs before they reach storage.
//
// Sealed values carry a version prefix so rows written before a key was
// configured keep working: Open returns unprefixed values unchanged.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix = "sealed:v1:"
	keyInfo      = "calendar-assistant credential v1"
)

var (
	// ErrSealedWithoutKey is returned when a sealed value is read by a
	// Sealer that has no key configured.
	ErrSealedWithoutKey = errors.New("vault: sealed value but no key configured")
	// ErrCorrupt is returned when a sealed value cannot be decoded or
	// authenticated.
	ErrCorrupt = errors.New("vault: sealed value is corrupt")
)

// Sealer protects credential blobs. The owner id is bound as additional data
// so a sealed blob cannot be moved to another user's row.
type Sealer interface {
	Seal(owner, plaintext string) (string, error)
	Open(owner, sealed string) (string, error)
}

// New returns a Sealer for the configured secret. An empty secret yields a
// pass-through sealer.
func New(secret string) (Sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return plaintext{}, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init credential cipher: %w", err)
	}
	return &xchacha{aead: aead}, nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

type plaintext struct{}

func (plaintext) Seal(_, value string) (string, error) {
	return value, nil
}

func (plaintext) Open(_, value string) (string, error) {
	if IsSealed(value) {
		return "", ErrSealedWithoutKey
	}
	return value, nil
}

type xchacha struct {
	aead cipher.AEAD
}

func (x *xchacha) Seal(owner, value string) (string, error) {
	// the empty sentinel stays readable as "no credential"
	if value == "" {
		return "", nil
	}
	nonce := make([]byte, x.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := x.aead.Seal(nonce, nonce, []byte(value), []byte(owner))
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (x *xchacha) Open(owner, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	size := x.aead.NonceSize()
	if len(raw) < size {
		return "", ErrCorrupt
	}
	plain, err := x.aead.Open(nil, raw[:size], raw[size:], []byte(owner))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return string(plain), nil
}
