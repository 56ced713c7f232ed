package loginauth

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/stefvanhouten/loginauth/internal/audit"
	"github.com/stefvanhouten/loginauth/internal/rate"
	"github.com/stefvanhouten/loginauth/password"
	"github.com/stefvanhouten/loginauth/session"
)

// dummyPlaintext is hashed once at Build; logins for unknown usernames verify
// against the result so both failure paths do the same hashing work.
const dummyPlaintext = "loginauth timing equalisation"

// Builder assembles an [Engine]. Builders are single-use: configure during
// initialization, call Build once.
type Builder struct {
	config      Config
	credentials CredentialStore
	sessions    SessionStore
	redis       redis.UniversalClient
	logger      *slog.Logger
	auditSink   AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the credential persistence backend. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithSessionStore sets the session registry. When unset, Build uses a Redis
// registry if a Redis client was supplied and an in-memory one otherwise.
func (b *Builder) WithSessionStore(store SessionStore) *Builder {
	b.sessions = store
	return b
}

// WithRedis supplies the Redis client used for login throttling and, unless
// WithSessionStore overrides it, the session registry.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit destination. Only used when Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if cfg.Security.MaxLoginAttempts > 0 && b.redis == nil {
		return nil, errors.New("login throttling requires redis client")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- SIGNING KEY --------
	var key []byte
	var err error
	if len(cfg.Session.Secret) > 0 {
		key, err = session.DeriveKey(cfg.Session.Secret)
	} else {
		key, err = session.NewRandomKey()
		logger.Warn("no session secret configured; using an ephemeral signing key, sessions will not survive a restart")
	}
	if err != nil {
		return nil, err
	}
	cfg.Session.Secret = nil

	codec, err := session.NewCodec(key)
	if err != nil {
		return nil, err
	}

	// -------- SESSION REGISTRY --------
	sessions := b.sessions
	if sessions == nil {
		if b.redis != nil {
			sessions = session.NewRedisStore(b.redis, cfg.Session.RedisPrefix)
		} else {
			sessions = session.NewMemoryStore()
		}
	}

	// -------- PASSWORD HASHER --------
	hasher := password.NewSalted()
	dummy, err := hasher.Hash(dummyPlaintext, "")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy credential: %w", err)
	}

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		sessions:    sessions,
		codec:       codec,
		hasher:      hasher,
		dummy:       dummy,
		logger:      logger,
		metrics:     NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	if cfg.Security.MaxLoginAttempts > 0 {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:           cfg.Session.RedisPrefix,
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxLoginAttempts: cfg.Security.MaxLoginAttempts,
			LoginCooldown:    cfg.Security.LoginCooldown,
		})
	}

	b.built = true

	return engine, nil
}
