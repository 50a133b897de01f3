// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (transcription, paraphrase, synthesis,
// publishing) while capturing progress and failure metadata. Retryable
// failures send an item back to the start of its stage until
// workflow.max_attempts is reached. The manager also aggregates queue stats,
// calls stage health checks, and emits notifications when processing starts,
// when a stage produces an artifact, and when the queue drains.
//
// The workflow runs two independent lanes: transcription (Deepgram uploads)
// and text (paraphrase, synthesis, publishing). Each lane polls for items
// matching its statuses, so lecture B can be transcribed while lecture A is
// being paraphrased.
package workflow
