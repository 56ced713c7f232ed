package loginauth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.MaxAge != 172800*time.Second {
		t.Fatalf("expected 48h max age, got %v", cfg.Session.MaxAge)
	}
	if !cfg.Session.CookieSecure || cfg.Session.CookieName != "login" {
		t.Fatalf("unexpected cookie defaults: %+v", cfg.Session)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "zero max age",
			mutate:    func(c *Config) { c.Session.MaxAge = 0 },
			wantValid: false,
		},
		{
			name:      "fractional max age",
			mutate:    func(c *Config) { c.Session.MaxAge = 1500 * time.Millisecond },
			wantValid: false,
		},
		{
			name:      "short secret",
			mutate:    func(c *Config) { c.Session.Secret = []byte("too-short") },
			wantValid: false,
		},
		{
			name:      "long secret",
			mutate:    func(c *Config) { c.Session.Secret = []byte(strings.Repeat("k", 32)) },
			wantValid: true,
		},
		{
			name:      "empty cookie name",
			mutate:    func(c *Config) { c.Session.CookieName = "" },
			wantValid: false,
		},
		{
			name:      "cookie name with separator",
			mutate:    func(c *Config) { c.Session.CookieName = "lo;gin" },
			wantValid: false,
		},
		{
			name:      "blank redis prefix",
			mutate:    func(c *Config) { c.Session.RedisPrefix = "  " },
			wantValid: false,
		},
		{
			name:      "negative attempts",
			mutate:    func(c *Config) { c.Security.MaxLoginAttempts = -1 },
			wantValid: false,
		},
		{
			name: "throttle without cooldown",
			mutate: func(c *Config) {
				c.Security.MaxLoginAttempts = 5
				c.Security.LoginCooldown = 0
			},
			wantValid: false,
		},
		{
			name:      "ip throttle without budget",
			mutate:    func(c *Config) { c.Security.EnableIPThrottle = true },
			wantValid: false,
		},
		{
			name: "audit without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWithConfigCopiesSecret(t *testing.T) {
	secret := []byte(strings.Repeat("k", 32))
	cfg := DefaultConfig()
	cfg.Session.Secret = secret

	b := New().WithConfig(cfg)
	secret[0] = 'x'

	if b.config.Session.Secret[0] != 'k' {
		t.Fatal("builder must not alias the caller's secret")
	}
}
