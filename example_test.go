package loginauth_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/stefvanhouten/loginauth"
	"github.com/stefvanhouten/loginauth/credstore/memory"
)

// ExampleNew demonstrates engine construction with an in-memory credential store.
func ExampleNew() {
	cfg := loginauth.DefaultConfig()
	cfg.Session.Secret = []byte("0123456789abcdef0123456789abcdef")

	engine, err := loginauth.New().
		WithConfig(cfg).
		WithCredentialStore(memory.New()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	fmt.Println(engine.Config().Session.CookieName)
	// Output: login
}

// ExampleEngine_Login shows the register, login, lookup and logout cycle.
func ExampleEngine_Login() {
	ctx := context.Background()
	engine, _ := loginauth.New().
		WithCredentialStore(memory.New()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	defer engine.Close()

	_, _ = engine.Register(ctx, "alice", "correct-horse")

	if _, err := engine.Login(ctx, "alice", "battery-staple"); errors.Is(err, loginauth.ErrInvalidCredentials) {
		fmt.Println("rejected")
	}

	token, _ := engine.Login(ctx, "alice", "correct-horse")
	id, _ := engine.CurrentUser(ctx, token)
	fmt.Println(id.Username)

	_ = engine.Logout(ctx, token)
	_, err := engine.CurrentUser(ctx, token)
	fmt.Println(errors.Is(err, loginauth.ErrUnauthenticated))
	// Output:
	// rejected
	// alice
	// true
}
