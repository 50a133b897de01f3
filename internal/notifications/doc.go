// Package notifications delivers workflow events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured.
// Events are grouped into queue, stage, and error categories that can be
// muted individually in config.toml; workflow code depends only on the
// Publish method of the Service interface.
package notifications
