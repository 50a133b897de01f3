// Package llm provides an OpenAI-compatible chat completions client.
//
// The paraphrase service uses it to rewrite transcript chunks. Requests carry
// a system prompt and a user prompt; the trimmed content of the first choice
// is returned.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default). A
// Retry-After header overrides the computed delay. Context cancellation aborts
// retries immediately.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive the completion text.
// Client.HealthCheck: verify API key and model availability.
// IsTransient: classify errors returned by the client.
package llm
