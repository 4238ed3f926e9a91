// Package queue persists analysis jobs and exposes the precedence rules the
// scheduler claims work by.
//
// A job is one unit of analysis: a camera frame awaiting the vision cascade or
// an audio window awaiting the spectral analyzer. Jobs carry a priority tier,
// and claiming always picks the highest tier first, oldest first within a
// tier. The durable implementation is SQLite; NewMemoryStore provides the same
// contract for tests and ephemeral runs.
//
// The database holds scheduling state and inline audio payloads, not media:
// frames are referenced by path. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or job fields, update schema.sql and bump schemaVersion.
package queue
