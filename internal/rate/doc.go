// Package rate provides the Redis-backed fixed-window login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys live under the
// configured prefix:
//   - <prefix>:al:<username>  login failures per username
//   - <prefix>:ali:<ip>       login failures per client IP (optional)
//
// Counters are keyed by the submitted username whether or not an account exists, so
// throttling behaves the same for unknown and known names.
//
// # What this package must NOT do
//
//   - Decide what a throttled caller sees; the engine maps [ErrRateLimited].
//   - Be imported outside the loginauth module.
package rate
