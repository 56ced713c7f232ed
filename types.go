package loginauth

import (
	"context"
	"time"

	"github.com/stefvanhouten/loginauth/credstore"
)

// Credential is a persisted user record including hash and salt. It is returned by
// Register for the caller's records and never placed in a session.
type Credential = credstore.Credential

// CredentialStore is the credential persistence contract. See [credstore.Store].
type CredentialStore = credstore.Store

// Identity is the public view of an authenticated user. It never carries secret
// material.
type Identity struct {
	UserID   string
	Username string
}

// SessionStore is the server-side registry of active session tokens. It exists so
// Logout can revoke a token that would otherwise still decode until it expires.
//
// Implementations: [session.MemoryStore], [session.RedisStore].
type SessionStore interface {
	// Put registers token for userID until expiresAt.
	Put(ctx context.Context, token, userID string, expiresAt time.Time) error
	// Get returns the user ID for token or session.ErrNotFound.
	Get(ctx context.Context, token string) (string, error)
	// Delete removes token; unknown tokens are a no-op.
	Delete(ctx context.Context, token string) error
	// DeleteAllForUser removes every token registered for userID.
	DeleteAllForUser(ctx context.Context, userID string) error
}
