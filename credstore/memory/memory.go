// Package memory provides an in-process credential store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stefvanhouten/loginauth/credstore"
)

// Store keeps credentials in maps guarded by a single mutex, so the username check
// and the insert happen under one lock.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]credstore.Credential
	byUsername map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]credstore.Credential),
		byUsername: make(map[string]string),
	}
}

// FindByUsername returns the credential for username.
func (s *Store) FindByUsername(_ context.Context, username string) (credstore.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return credstore.Credential{}, credstore.ErrNotFound
	}
	return s.byID[id], nil
}

// FindByID returns the credential with id.
func (s *Store) FindByID(_ context.Context, id string) (credstore.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[id]
	if !ok {
		return credstore.Credential{}, credstore.ErrNotFound
	}
	return cred, nil
}

// Insert stores a new credential under a fresh UUID.
func (s *Store) Insert(_ context.Context, username, passwordHash, salt string) (credstore.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[username]; taken {
		return credstore.Credential{}, credstore.ErrDuplicateUsername
	}

	cred := credstore.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Salt:         salt,
	}
	s.byID[cred.ID] = cred
	s.byUsername[username] = cred.ID
	return cred, nil
}

// UpdatePasswordHash replaces hash and salt of the credential with id.
func (s *Store) UpdatePasswordHash(_ context.Context, id, passwordHash, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return credstore.ErrNotFound
	}
	cred.PasswordHash = passwordHash
	cred.Salt = salt
	s.byID[id] = cred
	return nil
}

var _ credstore.Store = (*Store)(nil)
