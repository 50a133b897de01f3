package preflight

import (
	"context"
	"strings"

	"lectern/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Staging directory (always checked)
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))

	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}
	if cfg.Paths.InboxDir != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	}

	results = append(results, CheckDeepgram(ctx, cfg.Deepgram.BaseURL, cfg.Deepgram.APIKey))

	if cfg.Paraphrase.Enabled {
		results = append(results, CheckLLM(ctx, "Chat API", ParaphraseLLM(cfg)))
	}
	if cfg.TTS.Enabled {
		results = append(results, CheckTTS(ctx, cfg.TTS.URL))
	}

	return results
}

// Failures returns the checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// ParaphraseLLM derives chat client settings from the paraphrase section.
func ParaphraseLLM(cfg *config.Config) LLMSettings {
	return LLMSettings{
		APIKey:  strings.TrimSpace(cfg.Paraphrase.APIKey),
		BaseURL: strings.TrimSpace(cfg.Paraphrase.BaseURL),
		Model:   strings.TrimSpace(cfg.Paraphrase.Model),
	}
}
