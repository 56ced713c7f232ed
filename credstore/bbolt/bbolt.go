// Package bbolt provides a BBolt-backed credential store.
package bbolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stefvanhouten/loginauth/credstore"
	"go.etcd.io/bbolt"
)

var (
	credentialsBucket = []byte("credentials")
	usernamesBucket   = []byte("usernames")
)

type record struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Salt         string `json:"salt"`
}

// Store implements credstore.Store on a BBolt database.
//
// Layout: "credentials" maps ID to a JSON record, "usernames" maps username to ID.
// Insert checks and writes both buckets in a single read-write transaction; BBolt
// allows one writer at a time, which serializes concurrent registrations.
type Store struct {
	db *bbolt.DB
}

var _ credstore.Store = (*Store)(nil)

// New returns a Store on db, creating its buckets if needed.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(credentialsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(usernamesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromFile opens a BBolt database at path and returns a Store on it.
func NewFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindByUsername(_ context.Context, username string) (credstore.Credential, error) {
	var cred credstore.Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get([]byte(username))
		if id == nil {
			return credstore.ErrNotFound
		}
		var err error
		cred, err = getCredential(tx, string(id))
		return err
	})
	return cred, mapErr(err)
}

func (s *Store) FindByID(_ context.Context, id string) (credstore.Credential, error) {
	var cred credstore.Credential
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		cred, err = getCredential(tx, id)
		return err
	})
	return cred, mapErr(err)
}

func (s *Store) Insert(_ context.Context, username, passwordHash, salt string) (credstore.Credential, error) {
	cred := credstore.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Salt:         salt,
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		if names.Get([]byte(username)) != nil {
			return credstore.ErrDuplicateUsername
		}
		if err := putCredential(tx, cred); err != nil {
			return err
		}
		return names.Put([]byte(username), []byte(cred.ID))
	})
	if err != nil {
		return credstore.Credential{}, mapErr(err)
	}
	return cred, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, passwordHash, salt string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		cred, err := getCredential(tx, id)
		if err != nil {
			return err
		}
		cred.PasswordHash = passwordHash
		cred.Salt = salt
		return putCredential(tx, cred)
	})
	return mapErr(err)
}

func getCredential(tx *bbolt.Tx, id string) (credstore.Credential, error) {
	data := tx.Bucket(credentialsBucket).Get([]byte(id))
	if data == nil {
		return credstore.Credential{}, credstore.ErrNotFound
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return credstore.Credential{}, fmt.Errorf("decoding credential %s: %w", id, err)
	}
	return credstore.Credential{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Salt:         r.Salt,
	}, nil
}

func putCredential(tx *bbolt.Tx, cred credstore.Credential) error {
	data, err := json.Marshal(record{
		ID:           cred.ID,
		Username:     cred.Username,
		PasswordHash: cred.PasswordHash,
		Salt:         cred.Salt,
	})
	if err != nil {
		return err
	}
	return tx.Bucket(credentialsBucket).Put([]byte(cred.ID), data)
}

func mapErr(err error) error {
	if err == nil ||
		errors.Is(err, credstore.ErrNotFound) ||
		errors.Is(err, credstore.ErrDuplicateUsername) {
		return err
	}
	return fmt.Errorf("%w: %v", credstore.ErrUnavailable, err)
}
