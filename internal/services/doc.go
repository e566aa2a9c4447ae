// Package services defines shared utilities consumed across the import
// pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, phase names, and resource
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal (abort the run) and recoverable (skip and continue).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
