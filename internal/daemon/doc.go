// Package daemon coordinates the long-running Vigil process and system
// integration points.
//
// It wires configuration, the queue store, the scheduler, and the alert
// dispatcher into a single lifecycle with flock-based locking to prevent
// multiple instances. The daemon exposes queue maintenance helpers, owns job
// submission, serves the HTTP API, and watches video4linux hotplug events so
// a camera disappearing mid-watch becomes an alert instead of silence.
//
// Keep orchestration logic here: analysis itself lives in the handler
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
