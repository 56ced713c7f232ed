package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed session registry. Token entries carry a TTL equal to
// the token's remaining lifetime, so Redis expires them without a sweeper.
//
// Key layout (prefix defaults to "ls"):
//
//	<prefix>:t:<fingerprint>  -> user ID
//	<prefix>:u:<userID>       -> set of fingerprints
//
// A token key and its user index generally hash to different cluster slots, so no
// command, script or transaction spans both; every command touches a single key.
// The index is written before the token and cleaned after it, so a live token is
// always reachable from its user's index and a stale index member is harmless.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore] on client using prefix as the key namespace.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ls"
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) tokenKey(fp string) string {
	return s.prefix + ":t:" + fp
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Put registers token for userID until expiresAt.
//
//	Performance: 1 pipeline (SADD + EXPIRE), then 1 SET.
func (s *RedisStore) Put(ctx context.Context, token, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	fp := Fingerprint(token)
	userKey := s.userKey(userID)

	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, userKey, fp)
		// Every session shares one max age, so the newest token outlives the index's
		// older members.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.redis.Set(ctx, s.tokenKey(fp), userID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns the user ID registered for token, or [ErrNotFound].
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := s.redis.Get(ctx, s.tokenKey(Fingerprint(token))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return userID, nil
}

// Delete removes token and then its user index entry. Deleting an unknown token
// is a no-op.
//
//	Performance: 1 GETDEL, then 1 SREM when the token existed.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	fp := Fingerprint(token)
	userID, err := s.redis.GetDel(ctx, s.tokenKey(fp)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.redis.SRem(ctx, s.userKey(userID), fp).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every token registered for userID.
//
// Only the index members read here are removed, so a token registered
// concurrently stays indexed and is caught by the next call.
//
//	Performance: 1 SMEMBERS, then 1 pipeline of single-key DELs and one SREM.
func (s *RedisStore) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	fps, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fps) == 0 {
		return nil
	}

	members := make([]any, 0, len(fps))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, fp := range fps {
			pipe.Del(ctx, s.tokenKey(fp))
			members = append(members, fp)
		}
		pipe.SRem(ctx, userKey, members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
