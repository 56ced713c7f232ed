// Package prometheus renders loginauth engine metrics in Prometheus text
// exposition format.
//
// [New] accepts anything with MetricsSnapshot and AuditDropped methods, usually
// a *loginauth.Engine, and [Exporter.Handler] serves the result. Counter names
// are prefixed loginauth_*_total; the single histogram is
// loginauth_current_user_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
