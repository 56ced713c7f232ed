package loginauth

import (
	"errors"

	"github.com/stefvanhouten/loginauth/credstore"
	"github.com/stefvanhouten/loginauth/password"
)

var (
	// ErrValidation is returned for malformed input: empty or oversized username,
	// empty password.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicateUsername is returned by Register when the username is taken.
	ErrDuplicateUsername = credstore.ErrDuplicateUsername
	// ErrNotFound is returned by UserByID and ChangePassword for an unknown user ID.
	ErrNotFound = credstore.ErrNotFound
	// ErrInvalidCredentials is the single, generic login failure. It never says
	// whether the username exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned by CurrentUser for a missing, tampered, expired
	// or revoked session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrLoginRateLimited is returned when login throttling rejects an attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionStoreUnavailable wraps session registry backend failures.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
	// ErrCredentialStoreUnavailable wraps credential store backend failures.
	ErrCredentialStoreUnavailable = credstore.ErrUnavailable
	// ErrInvalidSalt signals a stored salt that does not decode to 8 bytes.
	ErrInvalidSalt = password.ErrInvalidSalt
)
