package preflight

import (
	"context"
	"strings"

	"lectern/internal/config"
)

// CheckDeepgramFromConfig evaluates Deepgram status from config and connectivity.
func CheckDeepgramFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Deepgram"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Deepgram.APIKey) == "" {
		return Result{Name: name, Detail: "Missing API key"}
	}
	return CheckDeepgram(ctx, cfg.Deepgram.BaseURL, cfg.Deepgram.APIKey)
}

// CheckParaphraseFromConfig evaluates the chat API used for paraphrasing.
func CheckParaphraseFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Chat API"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Paraphrase.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return CheckLLM(ctx, name, ParaphraseLLM(cfg))
}

// CheckTTSFromConfig evaluates the speech synthesis server.
func CheckTTSFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "TTS server"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.TTS.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.TTS.Username) == "" || strings.TrimSpace(cfg.TTS.Password) == "" {
		return Result{Name: name, Detail: "Missing credentials"}
	}
	return CheckTTS(ctx, cfg.TTS.URL)
}
