package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidKey       = errors.New("invalid system key")
	ErrKeyNotConfigured = errors.New("system key is not configured")
)

// KeyVerifier checks the shared key used by scheduled jobs and billing hooks.
type KeyVerifier interface {
	Verify(key string) error
}

// BcryptKeyVerifier compares keys against a bcrypt hash.
type BcryptKeyVerifier struct {
	hash []byte
}

// NewBcryptKeyVerifier creates a verifier for hash. An empty hash rejects every key.
func NewBcryptKeyVerifier(hash string) *BcryptKeyVerifier {
	return &BcryptKeyVerifier{hash: []byte(hash)}
}

// Verify returns nil when key matches the configured hash.
func (v *BcryptKeyVerifier) Verify(key string) error {
	if len(v.hash) == 0 {
		return ErrKeyNotConfigured
	}
	if key == "" {
		return ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}

// HashKey returns the bcrypt hash to configure as SYSTEM_KEY_HASH.
func HashKey(key string, cost int) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	encoded, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
