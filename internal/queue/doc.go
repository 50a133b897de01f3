// Package queue persists lecture jobs in SQLite and drives their lifecycle.
//
// The Store owns the connection pool, applies schema migrations tracked by
// PRAGMA user_version, and implements the status transitions of the
// transcription, paraphrase, synthesis and publishing stages together with
// heartbeat tracking and stuck-item recovery. Each item keeps the job
// options chosen at submission time so later stages never consult the
// submitter again.
package queue
