package internaldefs

import (
	"github.com/stefvanhouten/loginauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   loginauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   loginauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for [loginauth.Engine.AuditDropped].
const (
	AuditDroppedName = "loginauth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: loginauth.MetricRegisterSuccess, Name: "loginauth_register_success_total", Help: "Successful registrations."},
	{ID: loginauth.MetricRegisterDuplicate, Name: "loginauth_register_duplicate_total", Help: "Registrations rejected for a taken username."},
	{ID: loginauth.MetricRegisterInvalid, Name: "loginauth_register_invalid_total", Help: "Registrations rejected by input validation."},
	{ID: loginauth.MetricLoginSuccess, Name: "loginauth_login_success_total", Help: "Successful login attempts."},
	{ID: loginauth.MetricLoginFailure, Name: "loginauth_login_failure_total", Help: "Failed login attempts."},
	{ID: loginauth.MetricLoginRateLimited, Name: "loginauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: loginauth.MetricSessionCreated, Name: "loginauth_session_created_total", Help: "Created sessions."},
	{ID: loginauth.MetricSessionExpired, Name: "loginauth_session_expired_total", Help: "Session lookups with an expired token."},
	{ID: loginauth.MetricSessionTampered, Name: "loginauth_session_tampered_total", Help: "Session lookups with a token failing integrity checks."},
	{ID: loginauth.MetricSessionRevoked, Name: "loginauth_session_revoked_total", Help: "Session lookups with a revoked token."},
	{ID: loginauth.MetricLogout, Name: "loginauth_logout_total", Help: "Logout operations."},
	{ID: loginauth.MetricPasswordChangeSuccess, Name: "loginauth_password_change_success_total", Help: "Successful password changes."},
	{ID: loginauth.MetricPasswordChangeFailure, Name: "loginauth_password_change_failure_total", Help: "Password changes rejected for a wrong current password."},
	{ID: loginauth.MetricCorruptSalt, Name: "loginauth_corrupt_salt_total", Help: "Stored credentials with an invalid salt."},
	{ID: loginauth.MetricBackendFailure, Name: "loginauth_backend_failure_total", Help: "Credential or session store failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: loginauth.MetricCurrentUserLatency, Name: "loginauth_current_user_latency_seconds", Help: "CurrentUser latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, matching the engine
// histogram.
var HistogramBounds = []string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds without the +Inf bucket, as floats.
var HistogramBoundValues = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into Prometheus cumulative
// counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
