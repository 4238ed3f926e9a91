// Package services defines shared utilities consumed by the job handlers and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue job IDs, handler names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into retryable and terminal categories for the scheduler.
//
// Use these helpers when wiring new handler logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
