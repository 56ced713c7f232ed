package loginauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stefvanhouten/loginauth/session"
)

// DefaultSessionMaxAge is the lifetime of an issued session token: 48 hours.
const DefaultSessionMaxAge = 172800 * time.Second

// MaxUsernameLength bounds usernames so they always fit in a session token.
const MaxUsernameLength = 255

// Config holds engine settings. Obtain one with [DefaultConfig] and adjust fields
// before passing it to [Builder.WithConfig].
type Config struct {
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls token issuance and the cookie contract.
type SessionConfig struct {
	// MaxAge is the token lifetime and the cookie Max-Age.
	MaxAge time.Duration
	// Secret is the process signing secret (>= 32 bytes). Empty generates a random
	// key at Build, which invalidates all tokens on restart.
	Secret []byte
	// CookieName is the cookie carrying the token.
	CookieName string
	// CookieSecure sets the Secure attribute. Only disable for local plain-HTTP use.
	CookieSecure bool
	// RedisPrefix namespaces session and throttle keys in Redis.
	RedisPrefix string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling.
type SecurityConfig struct {
	// MaxLoginAttempts is the failure budget per username (and per IP when
	// EnableIPThrottle is set) within LoginCooldown. Zero disables throttling.
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	EnableIPThrottle bool
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the CurrentUser latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: 48h sessions, Secure cookie named
// "login", throttling off, audit off, counters on.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			MaxAge:       DefaultSessionMaxAge,
			CookieName:   "login",
			CookieSecure: true,
			RedisPrefix:  "ls",
		},
		Security: SecurityConfig{
			MaxLoginAttempts: 0,
			LoginCooldown:    15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Session
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if c.Session.MaxAge%time.Second != 0 {
		return errors.New("Session MaxAge must be a whole number of seconds")
	}
	if n := len(c.Session.Secret); n > 0 && n < session.MinSecretLength {
		return fmt.Errorf("Session Secret must be empty or >= %d bytes", session.MinSecretLength)
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName is required")
	}
	if strings.ContainsAny(c.Session.CookieName, " \t\r\n;,=\"") {
		return errors.New("Session CookieName contains invalid characters")
	}
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix is required")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldown <= 0 {
		return errors.New("LoginCooldown must be > 0 when login throttling is enabled")
	}
	if c.Security.EnableIPThrottle && c.Security.MaxLoginAttempts == 0 {
		return errors.New("EnableIPThrottle requires MaxLoginAttempts > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
