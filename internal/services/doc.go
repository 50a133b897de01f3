// Package services defines shared utilities consumed by the workflow stage
// handlers and the external API clients (Deepgram, chat completions, TTS).
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, stage names, lanes, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into retryable and terminal outcomes.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
