// Package observability provides an OpenTelemetry-based metrics extension
// for Herd. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for task enqueue, completion, failure, cancellation,
// deadline expiry, and schedule fires.
//
// For per-execution tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
