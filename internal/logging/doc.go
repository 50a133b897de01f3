// Package logging assembles the slog loggers used by lectern.
//
// It owns the console and JSON handlers, level parsing, file outputs and the
// in-memory StreamHub that backs `lectern logs` and the /api/logs endpoint.
// Context helpers tag log lines with the queue item, stage, lane and request
// id carried in a context so stage code does not repeat them.
package logging
