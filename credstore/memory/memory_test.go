package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stefvanhouten/loginauth/credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := New()

	cred, err := s.Insert(ctx, "alice", "hash", "salt")
	require.NoError(t, err)
	assert.NotEmpty(t, cred.ID)
	assert.Equal(t, "alice", cred.Username)

	byName, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, cred, byName)

	byID, err := s.FindByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, cred, byID)

	_, err = s.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, credstore.ErrNotFound)
	_, err = s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestStoreRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.Insert(ctx, "alice", "h1", "s1")
	require.NoError(t, err)

	_, err = s.Insert(ctx, "alice", "h2", "s2")
	require.ErrorIs(t, err, credstore.ErrDuplicateUsername)

	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first, got, "duplicate insert must not touch the existing record")
}

func TestStoreConcurrentInsertSameUsername(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Insert(ctx, "alice", "h", "s"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestStoreUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	s := New()

	cred, err := s.Insert(ctx, "alice", "h1", "s1")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePasswordHash(ctx, cred.ID, "h2", "s2"))

	got, err := s.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, "s2", got.Salt)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "h", "s"), credstore.ErrNotFound)
}
