package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/stefvanhouten/loginauth"
	boltstore "github.com/stefvanhouten/loginauth/credstore/bbolt"
	"github.com/stefvanhouten/loginauth/credstore/postgres"
	"github.com/stefvanhouten/loginauth/internal/web"
	"github.com/stefvanhouten/loginauth/metrics/export/prometheus"
)

const secretEnv = "LOGINAUTH_SECRET"

type serveOptions struct {
	addr             string
	boltPath         string
	postgresDSN      string
	redisAddr        string
	devRedis         bool
	secret           string
	insecureCookie   bool
	maxLoginAttempts int
	ipThrottle       bool
	audit            bool
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the login HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		engine, cleanup, err := buildEngine(cmd.Context(), serveOpts, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := web.New(engine, engine.Config().Session,
			web.WithLogger(logger),
			web.WithMetrics(prometheus.New(engine).Handler()),
		)

		server := &http.Server{
			Addr:              serveOpts.addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("listening", "addr", serveOpts.addr)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&serveOpts.addr, "addr", ":8080", "Address to listen on")
	f.StringVar(&serveOpts.boltPath, "bolt-path", "./loginauth.db", "bbolt credential database, used when --postgres-dsn is empty")
	f.StringVar(&serveOpts.postgresDSN, "postgres-dsn", "", "PostgreSQL DSN for the credential store")
	f.StringVar(&serveOpts.redisAddr, "redis-addr", "", "Redis address for sessions and login throttling")
	f.BoolVar(&serveOpts.devRedis, "dev-redis", false, "Run an in-process Redis when --redis-addr is empty")
	f.StringVar(&serveOpts.secret, "secret", "", "Session signing secret (>= 32 bytes); falls back to $"+secretEnv)
	f.BoolVar(&serveOpts.insecureCookie, "insecure-cookie", false, "Drop the Secure cookie attribute for plain-HTTP development")
	f.IntVar(&serveOpts.maxLoginAttempts, "max-login-attempts", 0, "Failed logins allowed per cooldown window; 0 disables throttling")
	f.BoolVar(&serveOpts.ipThrottle, "ip-throttle", false, "Also throttle failed logins per client IP")
	f.BoolVar(&serveOpts.audit, "audit", false, "Write audit events as JSON lines to stdout")
}

func resolveSecret(flag string) []byte {
	if flag != "" {
		return []byte(flag)
	}
	if env := os.Getenv(secretEnv); env != "" {
		return []byte(env)
	}
	return nil
}

// buildEngine opens the configured backends and returns a ready engine with a
// cleanup func releasing them.
func buildEngine(ctx context.Context, opts serveOptions, logger *slog.Logger) (*loginauth.Engine, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	cfg := loginauth.DefaultConfig()
	cfg.Session.Secret = resolveSecret(opts.secret)
	cfg.Session.CookieSecure = !opts.insecureCookie
	cfg.Security.MaxLoginAttempts = opts.maxLoginAttempts
	cfg.Security.EnableIPThrottle = opts.ipThrottle
	cfg.Audit.Enabled = opts.audit

	b := loginauth.New().WithConfig(cfg).WithLogger(logger)

	switch {
	case opts.postgresDSN != "":
		db, err := postgres.Open(ctx, opts.postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		b.WithCredentialStore(postgres.New(db))
	default:
		store, err := boltstore.NewFromFile(opts.boltPath, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("open bbolt store: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		b.WithCredentialStore(store)
	}

	redisAddr := opts.redisAddr
	if redisAddr == "" && opts.devRedis {
		mr, err := miniredis.Run()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		closers = append(closers, mr.Close)
		redisAddr = mr.Addr()
		logger.Warn("using in-process redis; sessions are lost on restart", "addr", redisAddr)
	}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		b.WithRedis(client)
	}

	if opts.audit {
		b.WithAuditSink(loginauth.NewJSONWriterSink(auditOutput))
	}

	engine, err := b.Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, engine.Close)

	return engine, cleanup, nil
}

var auditOutput io.Writer = os.Stdout
