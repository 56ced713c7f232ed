package session

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeyLength is the size of the HMAC key used by [Codec].
	KeyLength = 32
	// MinSecretLength is the shortest configured secret [DeriveKey] accepts.
	MinSecretLength = 32

	keyInfo = "loginauth session token v1"
)

// DeriveKey expands a configured process secret into the token signing key.
func DeriveKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}

	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// NewRandomKey returns a fresh signing key. Tokens signed with it do not survive a restart.
func NewRandomKey() ([]byte, error) {
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}
