// Package ipc exposes the daemon over JSON-RPC on a Unix domain socket and
// ships the matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between queue models and wire representations. Reuse these types when adding
// RPC endpoints so the protocol stays compatible with existing commands.
package ipc
