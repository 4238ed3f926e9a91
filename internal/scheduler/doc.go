// Package scheduler drains the analysis queue with a bounded worker pool.
//
// Workers claim jobs in strict priority order and dispatch them to the
// handler registered for the job kind. A per-job heartbeat goroutine keeps
// long-running analyses visible; worker 0 periodically reclaims jobs whose
// heartbeat went stale. Retryable failures return to pending until the
// attempt budget is spent, then the job fails terminally and the failure is
// published alongside successful results on the outcome channel.
package scheduler
