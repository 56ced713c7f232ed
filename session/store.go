package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a token has no active registry entry.
	ErrNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps backend failures of a registry.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Fingerprint is the registry key for token: hex SHA-256 of the token text.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore is a process-local session registry. Entries past their expiry are
// dropped lazily on Get; there is no background sweeper.
//
// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]memoryEntry
	users  map[string]map[string]struct{}
	now    func() time.Time
}

// NewMemoryStore returns an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]memoryEntry),
		users:  make(map[string]map[string]struct{}),
		now:    time.Now,
	}
}

// Put registers token for userID until expiresAt. Tokens already expired are ignored.
func (s *MemoryStore) Put(_ context.Context, token, userID string, expiresAt time.Time) error {
	if !expiresAt.After(s.now()) {
		return nil
	}
	fp := Fingerprint(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.tokens[fp]; ok && prev.userID != userID {
		s.unindexLocked(prev.userID, fp)
	}
	s.tokens[fp] = memoryEntry{userID: userID, expiresAt: expiresAt}
	set, ok := s.users[userID]
	if !ok {
		set = make(map[string]struct{})
		s.users[userID] = set
	}
	set[fp] = struct{}{}
	return nil
}

// Get returns the user ID registered for token, or [ErrNotFound].
func (s *MemoryStore) Get(ctx context.Context, token string) (string, error) {
	fp := Fingerprint(token)

	s.mu.RLock()
	entry, ok := s.tokens[fp]
	s.mu.RUnlock()
	if !ok {
		return "", ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		_ = s.Delete(ctx, token)
		return "", ErrNotFound
	}
	return entry.userID, nil
}

// Delete removes token. Deleting an unknown token is a no-op.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	fp := Fingerprint(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[fp]
	if !ok {
		return nil
	}
	delete(s.tokens, fp)
	s.unindexLocked(entry.userID, fp)
	return nil
}

// DeleteAllForUser removes every token registered for userID.
func (s *MemoryStore) DeleteAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for fp := range s.users[userID] {
		delete(s.tokens, fp)
	}
	delete(s.users, userID)
	return nil
}

// Len returns the number of registered tokens, including expired ones not yet evicted.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

func (s *MemoryStore) unindexLocked(userID, fp string) {
	set, ok := s.users[userID]
	if !ok {
		return
	}
	delete(set, fp)
	if len(set) == 0 {
		delete(s.users, userID)
	}
}
