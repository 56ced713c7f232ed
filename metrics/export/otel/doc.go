// Package otel publishes loginauth engine metrics through OpenTelemetry.
//
// [New] registers one Int64ObservableCounter per engine counter and, for the
// CurrentUser latency histogram, a bucket gauge keyed by the "le" attribute plus
// a count gauge. A single callback reads MetricsSnapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
