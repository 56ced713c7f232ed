package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, cfg), mr, rdb
}

func TestLoginBudget(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLimiterTest(t, Config{MaxLoginAttempts: 3, LoginCooldown: time.Minute})

	for i := 0; i < 3; i++ {
		if err := l.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: unexpected check error %v", i, err)
		}
		if err := l.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: unexpected increment error %v", i, err)
		}
	}

	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after budget, got %v", err)
	}
	if err := l.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on increment past budget, got %v", err)
	}
	if err := l.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("other usernames must not be throttled, got %v", err)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	ctx := context.Background()
	l, mr, _ := newLimiterTest(t, Config{MaxLoginAttempts: 1, LoginCooldown: time.Minute})

	_ = l.IncrementLogin(ctx, "alice", "")
	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if ttl := mr.TTL("ls:al:alice"); ttl != time.Minute {
		t.Fatalf("expected window TTL of 1m, got %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestIPThrottle(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLimiterTest(t, Config{MaxLoginAttempts: 2, LoginCooldown: time.Minute, EnableIPThrottle: true})

	_ = l.IncrementLogin(ctx, "alice", "10.0.0.1")
	_ = l.IncrementLogin(ctx, "bob", "10.0.0.1")

	if err := l.CheckLogin(ctx, "carol", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected per-IP throttle, got %v", err)
	}
	if err := l.CheckLogin(ctx, "carol", "10.0.0.2"); err != nil {
		t.Fatalf("other IPs must not be throttled, got %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newLimiterTest(t, Config{MaxLoginAttempts: 5, LoginCooldown: time.Minute})

	_ = l.IncrementLogin(ctx, "alice", "")
	_ = l.IncrementLogin(ctx, "alice", "")
	if n, err := l.LoginAttempts(ctx, "alice"); err != nil || n != 2 {
		t.Fatalf("LoginAttempts = %d, %v", n, err)
	}

	if err := l.ResetLogin(ctx, "alice"); err != nil {
		t.Fatalf("ResetLogin error: %v", err)
	}
	if n, err := l.LoginAttempts(ctx, "alice"); err != nil || n != 0 {
		t.Fatalf("expected counter cleared, got %d, %v", n, err)
	}
}

func TestRedisDown(t *testing.T) {
	ctx := context.Background()
	l, _, rdb := newLimiterTest(t, Config{MaxLoginAttempts: 5, LoginCooldown: time.Minute})
	_ = rdb.Close()

	if err := l.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if err := l.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if err := l.ResetLogin(ctx, "alice"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
