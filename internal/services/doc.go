// Package services defines shared utilities consumed by the recording
// pipeline and the protocol clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, station IDs, pipeline stages, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures so any
//     error chain maps back to exactly one root cause.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the clients.
package services
