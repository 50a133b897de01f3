// Package daemon coordinates the long-running lectern process.
//
// It wires configuration, queue storage, the workflow manager, the inbox
// watcher and the HTTP API into a single lifecycle with flock-based locking to
// prevent multiple instances. The daemon exposes queue maintenance helpers,
// validates files submitted for processing, and reports dependency health.
//
// Keep orchestration logic here: individual pipeline stages live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
