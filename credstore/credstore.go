package credstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no credential matches the lookup key.
	ErrNotFound = errors.New("credential not found")
	// ErrDuplicateUsername is returned by Insert when the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("credential store unavailable")
)

// Credential is a persisted user record.
//
// PasswordHash is 64 lowercase hex characters; Salt is the base64 text of 8 raw bytes.
// Hash and salt are always written together.
type Credential struct {
	ID           string
	Username     string
	PasswordHash string
	Salt         string
}

// Store is the persistence contract for credentials.
//
// Insert must reject a taken username atomically: two concurrent inserts of the same
// username never both succeed.
type Store interface {
	FindByUsername(ctx context.Context, username string) (Credential, error)
	FindByID(ctx context.Context, id string) (Credential, error)
	Insert(ctx context.Context, username, passwordHash, salt string) (Credential, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash, salt string) error
}
