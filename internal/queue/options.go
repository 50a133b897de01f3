package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"lectern/internal/config"
)

// JobOptions captures the per-job processing choices made when a file is
// enqueued. They are stored as JSON alongside the item so later stages run
// with the settings that were active at submission time.
type JobOptions struct {
	Transcription TranscriptionOptions `json:"transcription"`
	Paraphrase    ParaphraseOptions    `json:"paraphrase"`
	TTS           TTSOptions           `json:"tts"`
	Publish       PublishOptions       `json:"publish"`
}

// TranscriptionOptions select the speech-to-text model and formatting.
type TranscriptionOptions struct {
	Model         string `json:"model,omitempty"`
	Language      string `json:"language,omitempty"`
	SmartFormat   bool   `json:"smart_format"`
	Punctuate     bool   `json:"punctuate"`
	Diarize       bool   `json:"diarize"`
	Utterances    bool   `json:"utterances"`
	ForceChunking bool   `json:"force_chunking,omitempty"`
}

// ParaphraseOptions control the optional rewrite of the transcript.
type ParaphraseOptions struct {
	Enabled   bool   `json:"enabled"`
	Style     string `json:"style,omitempty"`
	Formality string `json:"formality,omitempty"`
	Language  string `json:"language,omitempty"`
}

// TTSOptions control the optional audio rendition of the paraphrase.
type TTSOptions struct {
	Enabled   bool   `json:"enabled"`
	Voice     string `json:"voice,omitempty"`
	Format    string `json:"format,omitempty"`
	ChunkSize int    `json:"chunk_size,omitempty"`
}

// PublishOptions override where and under which name artifacts are written.
type PublishOptions struct {
	OutputDir  string `json:"output_dir,omitempty"`
	FilePrefix string `json:"file_prefix,omitempty"`
}

// DefaultJobOptions derives job options from the configured defaults. Files
// enqueued without explicit choices run with these.
func DefaultJobOptions(cfg *config.Config) JobOptions {
	if cfg == nil {
		return JobOptions{}
	}
	return JobOptions{
		Transcription: TranscriptionOptions{
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
			Punctuate:   cfg.Deepgram.Punctuate,
			Diarize:     cfg.Deepgram.Diarize,
			Utterances:  cfg.Deepgram.Utterances,
		},
		Paraphrase: ParaphraseOptions{
			Enabled:   cfg.Paraphrase.Enabled,
			Style:     cfg.Paraphrase.Style,
			Formality: cfg.Paraphrase.Formality,
			Language:  cfg.Paraphrase.Language,
		},
		TTS: TTSOptions{
			Enabled:   cfg.TTS.Enabled,
			Voice:     cfg.TTS.Voice,
			Format:    cfg.TTS.Format,
			ChunkSize: cfg.TTS.ChunkSize,
		},
	}
}

func encodeOptions(opts JobOptions) (string, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal job options: %w", err)
	}
	return string(data), nil
}

func decodeOptions(raw string) (JobOptions, error) {
	var opts JobOptions
	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return JobOptions{}, fmt.Errorf("decode job options: %w", err)
	}
	return opts, nil
}
