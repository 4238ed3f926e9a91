// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue, scheduler, and alert models into
// transport-friendly DTOs that the CLI and other consumers can render without
// coupling to internal types.
//
// # Key Types
//
// Job: transport representation of an analysis job with payload summary,
// attempt counters, and the serialized result.
//
// SchedulerStatus: scheduler running state, queue stats, handler health, and
// last processed job.
//
// DaemonStatus: aggregated runtime information including preflight checks.
//
// Alert: one surfaced observation from the recent-alert buffer.
//
// SubmitRequest: job submission body shared by HTTP, IPC, and the CLI.
//
// # Converters
//
// FromJob: queue.Job -> Job with audio payload summarization and result
// passthrough as json.RawMessage.
//
// FromStatusSummary: scheduler.StatusSummary -> SchedulerStatus.
//
// HandlerHealthSlice: deterministic ordering of the handler health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.Priority) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds. Results are passed through as
// json.RawMessage to avoid double-encoding.
//
// Audio windows are summarized (sample count, rate, RMS) rather than echoed
// back: a two-second window at 16 kHz is tens of kilobytes of samples nobody
// renders.
package api
