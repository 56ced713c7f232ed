package loginauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stefvanhouten/loginauth/internal/audit"
	"github.com/stefvanhouten/loginauth/internal/rate"
	"github.com/stefvanhouten/loginauth/password"
	"github.com/stefvanhouten/loginauth/session"
)

// Engine registers users, verifies passwords and manages session tokens.
//
// Engine instances are built once by [Builder.Build] and are safe for concurrent
// use by any number of request handlers.
type Engine struct {
	config      Config
	credentials CredentialStore
	sessions    SessionStore
	codec       *session.Codec
	hasher      *password.Salted
	dummy       password.Hashed
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the engine configuration with the secret removed.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates a credential for username with a freshly salted hash of
// plaintext.
//
// Empty or oversized input fails with [ErrValidation] before any side effect. A
// taken username fails with [ErrDuplicateUsername]; uniqueness is enforced by the
// store.
func (e *Engine) Register(ctx context.Context, username, plaintext string) (Credential, error) {
	if e == nil || e.credentials == nil {
		return Credential{}, ErrEngineNotReady
	}

	if username == "" || plaintext == "" || len(username) > MaxUsernameLength {
		e.metricInc(MetricRegisterInvalid)
		e.emitAudit(ctx, auditEventRegisterInvalid, false, "", ErrValidation, nil)
		return Credential{}, ErrValidation
	}

	hashed, err := e.hasher.Hash(plaintext, "")
	if err != nil {
		return Credential{}, fmt.Errorf("hash password: %w", err)
	}

	cred, err := e.credentials.Insert(ctx, username, hashed.Hash, hashed.Salt)
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", ErrDuplicateUsername, func() map[string]string {
				return map[string]string{"username": username}
			})
			return Credential{}, ErrDuplicateUsername
		}
		return Credential{}, e.credentialStoreError("insert credential", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, cred.ID, nil, func() map[string]string {
		return map[string]string{"username": username}
	})
	e.logger.Info("user registered", "user_id", cred.ID, "username", username)

	return cred, nil
}

// Login verifies the password for username and returns a new session token.
//
// Unknown usernames and wrong passwords both fail with [ErrInvalidCredentials]
// after the same amount of hashing work. When throttling is enabled an exhausted
// budget fails with [ErrLoginRateLimited], checked before the lookup.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (string, error) {
	if e == nil || e.credentials == nil || e.codec == nil {
		return "", ErrEngineNotReady
	}
	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				e.logger.Warn("login throttle check failed", "err", err)
			}
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"username": username}
			})
			return "", ErrLoginRateLimited
		}
	}

	cred, found, err := e.lookupForLogin(ctx, username)
	if err != nil {
		e.verifyDummy(plaintext)
		e.metricInc(MetricBackendFailure)
		e.logger.Error("credential lookup failed during login", "err", err)
		return "", e.loginFailure(ctx, username, ip, "", "store_unavailable", false)
	}
	if !found {
		e.verifyDummy(plaintext)
		return "", e.loginFailure(ctx, username, ip, "", "user_not_found", true)
	}

	ok, err := e.hasher.Verify(plaintext, cred.PasswordHash, cred.Salt)
	if err != nil {
		e.verifyDummy(plaintext)
		e.metricInc(MetricCorruptSalt)
		e.logger.Error("stored credential is corrupt", "user_id", cred.ID, "err", err)
		return "", e.loginFailure(ctx, username, ip, cred.ID, "corrupt_salt", true)
	}
	if !ok {
		return "", e.loginFailure(ctx, username, ip, cred.ID, "password_mismatch", true)
	}

	token, claims, err := e.codec.Issue(session.Claims{
		UserID:   cred.ID,
		Username: cred.Username,
	}, e.config.Session.MaxAge)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	if err := e.sessions.Put(ctx, token, cred.ID, time.Unix(claims.ExpiresAt, 0)); err != nil {
		e.metricInc(MetricBackendFailure)
		e.logger.Error("session registration failed", "user_id", cred.ID, "err", err)
		return "", fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	// A concurrent ChangePassword may have revoked the user's sessions between the
	// verification above and Put. It updates the credential before revoking, so a
	// credential that still matches here means any later revocation sees this token.
	if reason, err := e.confirmCredential(ctx, cred); err != nil || reason != "" {
		if delErr := e.sessions.Delete(ctx, token); delErr != nil {
			e.metricInc(MetricBackendFailure)
			e.logger.Error("session rollback failed", "user_id", cred.ID, "err", delErr)
			return "", fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, delErr)
		}
		if err != nil {
			e.metricInc(MetricBackendFailure)
			e.logger.Error("credential re-check failed during login", "user_id", cred.ID, "err", err)
			return "", e.loginFailure(ctx, username, ip, cred.ID, "store_unavailable", false)
		}
		return "", e.loginFailure(ctx, username, ip, cred.ID, reason, false)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, username); err != nil {
			e.logger.Warn("login throttle reset failed", "user_id", cred.ID, "err", err)
		}
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, cred.ID, nil, func() map[string]string {
		return map[string]string{"username": cred.Username}
	})

	return token, nil
}

func (e *Engine) lookupForLogin(ctx context.Context, username string) (Credential, bool, error) {
	if username == "" {
		return Credential{}, false, nil
	}
	cred, err := e.credentials.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Credential{}, false, nil
		}
		return Credential{}, false, err
	}
	return cred, true, nil
}

// confirmCredential re-reads cred and reports a non-empty reason when it has been
// removed or its password changed since it was verified.
func (e *Engine) confirmCredential(ctx context.Context, cred Credential) (string, error) {
	current, err := e.credentials.FindByID(ctx, cred.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "user_not_found", nil
		}
		return "", err
	}
	if current.PasswordHash != cred.PasswordHash || current.Salt != cred.Salt {
		return "password_changed", nil
	}
	return "", nil
}

// verifyDummy spends the same hashing work as a real verification.
func (e *Engine) verifyDummy(plaintext string) {
	_, _ = e.hasher.Verify(plaintext, e.dummy.Hash, e.dummy.Salt)
}

// loginFailure records a failed attempt and returns the caller-visible error.
// reason is for audit only and never reaches the caller.
func (e *Engine) loginFailure(ctx context.Context, username, ip, userID, reason string, count bool) error {
	if count && e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, username, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				e.logger.Warn("login throttle increment failed", "err", err)
			} else {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, ErrLoginRateLimited, func() map[string]string {
					return map[string]string{"username": username}
				})
				return ErrLoginRateLimited
			}
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"username": username,
			"reason":   reason,
		}
	})
	return ErrInvalidCredentials
}

// CurrentUser returns the identity behind token.
//
// Any decode failure (tampered, malformed, expired) or a missing registry entry
// yields [ErrUnauthenticated]; the cause is recorded in metrics and debug logs
// only. A registry outage also yields ErrUnauthenticated.
func (e *Engine) CurrentUser(ctx context.Context, token string) (Identity, error) {
	if e == nil || e.codec == nil || e.sessions == nil {
		return Identity{}, ErrUnauthenticated
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricCurrentUserLatency, time.Since(start))
		}()
	}

	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	claims, err := e.codec.Decode(token)
	if err != nil {
		if errors.Is(err, session.ErrExpired) {
			e.metricInc(MetricSessionExpired)
		} else {
			e.metricInc(MetricSessionTampered)
		}
		e.logger.Debug("session token rejected", "err", err)
		return Identity{}, ErrUnauthenticated
	}

	userID, err := e.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricSessionRevoked)
		} else {
			e.metricInc(MetricBackendFailure)
			e.logger.Warn("session registry lookup failed", "user_id", claims.UserID, "err", err)
		}
		return Identity{}, ErrUnauthenticated
	}
	if userID != claims.UserID {
		e.logger.Warn("session registry owner mismatch", "user_id", claims.UserID)
		return Identity{}, ErrUnauthenticated
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Logout revokes token. Unknown, expired or malformed tokens are a no-op; only a
// registry failure returns an error.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if token == "" {
		return nil
	}

	// Read the owner before revoking so the audit record names the user even when
	// the token has already expired.
	var userID string
	if e.codec != nil {
		if claims, err := e.codec.Inspect(token); err == nil {
			userID = claims.UserID
		}
	}

	if err := e.sessions.Delete(ctx, token); err != nil {
		e.metricInc(MetricBackendFailure)
		e.logger.Error("session revocation failed", "user_id", userID, "err", err)
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
	return nil
}

// ChangePassword verifies current for userID, stores a fresh hash and salt for
// next, and revokes every session of the user.
//
// A wrong current password fails with [ErrInvalidCredentials]. A corrupt stored
// salt is surfaced as [ErrInvalidSalt].
func (e *Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	if e == nil || e.credentials == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if next == "" {
		return ErrValidation
	}

	cred, err := e.credentials.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return e.credentialStoreError("find credential", err)
	}

	ok, err := e.hasher.Verify(current, cred.PasswordHash, cred.Salt)
	if err != nil {
		e.metricInc(MetricCorruptSalt)
		e.logger.Error("stored credential is corrupt", "user_id", cred.ID, "err", err)
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, cred.ID, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	hashed, err := e.hasher.Hash(next, "")
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := e.credentials.UpdatePasswordHash(ctx, cred.ID, hashed.Hash, hashed.Salt); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return e.credentialStoreError("update credential", err)
	}

	// The new password is already stored; a failure here leaves old sessions alive
	// until they expire.
	if err := e.sessions.DeleteAllForUser(ctx, cred.ID); err != nil {
		e.metricInc(MetricBackendFailure)
		e.logger.Error("session revocation after password change failed", "user_id", cred.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrSessionStoreUnavailable, err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, cred.ID, nil, nil)
	return nil
}

// UserByID returns the public identity for id, or [ErrNotFound].
func (e *Engine) UserByID(ctx context.Context, id string) (Identity, error) {
	if e == nil || e.credentials == nil {
		return Identity{}, ErrEngineNotReady
	}

	cred, err := e.credentials.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, e.credentialStoreError("find credential", err)
	}
	return Identity{UserID: cred.ID, Username: cred.Username}, nil
}

func (e *Engine) credentialStoreError(op string, err error) error {
	e.metricInc(MetricBackendFailure)
	e.logger.Error("credential store failure", "op", op, "err", err)
	if errors.Is(err, ErrCredentialStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrCredentialStoreUnavailable, err)
}
