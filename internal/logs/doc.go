// Package logs reads lectern log files directly, for `lectern logs` when the
// daemon is not running. It returns the last lines of a file, follows
// appended lines via fsnotify, and decodes JSON records into the same event
// shape the daemon's stream hub serves.
package logs
