// Package observability provides a metrics extension that counts call
// lifecycle events: submissions by conflict response, enqueues, starts,
// outcomes, retries and schedule fires.
//
// For per-execution tracing and latency histograms, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
