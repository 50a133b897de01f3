package daemonrun

import (
	"log/slog"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/media/audio"
	"lectern/internal/notifications"
	"lectern/internal/organizer"
	"lectern/internal/paraphrasing"
	"lectern/internal/queue"
	"lectern/internal/services/deepgram"
	"lectern/internal/services/llm"
	"lectern/internal/services/paraphraser"
	"lectern/internal/services/tts"
	"lectern/internal/stageexec"
	"lectern/internal/synthesis"
	"lectern/internal/transcription"
	"lectern/internal/workflow"
)

// NewDeepgramClient builds the prerecorded/live Deepgram client from config.
func NewDeepgramClient(cfg *config.Config) *deepgram.Client {
	return deepgram.New(cfg.Deepgram.APIKey,
		deepgram.WithBaseURL(cfg.Deepgram.BaseURL),
		deepgram.WithTimeout(cfg.DeepgramTimeout()),
		deepgram.WithLimiter(deepgram.NewLimiter(cfg.Deepgram.RequestsPerMinute)),
	)
}

// NewTranscriptionService builds the chunking transcription service.
func NewTranscriptionService(cfg *config.Config, logger *slog.Logger) *transcription.Service {
	return transcription.NewService(NewDeepgramClient(cfg), transcription.Config{
		SizeThreshold: cfg.SizeThresholdBytes(),
		ChunkDuration: cfg.ChunkDuration(),
		Overlap:       cfg.ChunkOverlap(),
		Concurrency:   cfg.Chunking.Concurrency,
		TempDir:       cfg.Paths.StagingDir,
	}, logger,
		transcription.WithExporter(audio.Exporter{Binary: cfg.FFmpegBinary()}),
		transcription.WithProber(transcription.FFprobeProber(cfg.FFprobeBinary())),
	)
}

// NewParaphraseService returns nil when no API key is configured.
func NewParaphraseService(cfg *config.Config, logger *slog.Logger) *paraphraser.Service {
	if strings.TrimSpace(cfg.Paraphrase.APIKey) == "" {
		return nil
	}
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Paraphrase.APIKey,
		BaseURL:        cfg.Paraphrase.BaseURL,
		Model:          cfg.Paraphrase.Model,
		Temperature:    cfg.Paraphrase.Temperature,
		TimeoutSeconds: cfg.Paraphrase.TimeoutSeconds,
	})
	return paraphraser.NewService(client, logger)
}

// NewTTSService returns nil when no synthesis endpoint is configured.
func NewTTSService(cfg *config.Config, logger *slog.Logger) *tts.Service {
	if strings.TrimSpace(cfg.TTS.URL) == "" {
		return nil
	}
	client := tts.New(cfg.TTS.URL, cfg.TTS.Username, cfg.TTS.Password,
		tts.WithTimeout(time.Duration(cfg.TTS.TimeoutSeconds)*time.Second))
	return tts.NewService(client, logger, cfg.Paths.StagingDir)
}

// ParaphraseDefaults returns the configured paraphrase options.
func ParaphraseDefaults(cfg *config.Config) paraphraser.Options {
	return paraphraser.Options{
		Style:     cfg.Paraphrase.Style,
		Formality: cfg.Paraphrase.Formality,
		Language:  cfg.Paraphrase.Language,
		MaxLength: cfg.Paraphrase.MaxLength,
	}
}

// BuildStages wires the four pipeline stages from configuration.
func BuildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) workflow.StageSet {
	defaults := deepgram.Options{
		Model:       cfg.Deepgram.Model,
		Language:    cfg.Deepgram.Language,
		SmartFormat: cfg.Deepgram.SmartFormat,
		Utterances:  cfg.Deepgram.Utterances,
		Punctuate:   cfg.Deepgram.Punctuate,
		Diarize:     cfg.Deepgram.Diarize,
	}
	set := workflow.StageSet{
		Transcription: transcription.NewStage(store, NewTranscriptionService(cfg, logger), cfg.Paths.StagingDir, defaults, logger),
		Publishing:    organizer.NewOrganizerWithDependencies(cfg, store, logger, notifier),
	}

	// Nil services stay nil interfaces so the stages report a configuration
	// error only for jobs that actually request them.
	var paraphraseSvc paraphrasing.Paraphraser
	if svc := NewParaphraseService(cfg, logger); svc != nil {
		paraphraseSvc = svc
	}
	set.Paraphrase = paraphrasing.NewStage(store, paraphraseSvc, ParaphraseDefaults(cfg), logger)

	var ttsSvc synthesis.Generator
	if svc := NewTTSService(cfg, logger); svc != nil {
		ttsSvc = svc
	}
	set.Synthesis = synthesis.NewStage(store, ttsSvc, cfg.Paths.StagingDir, synthesis.Defaults{
		Voice:     cfg.TTS.Voice,
		Format:    cfg.TTS.Format,
		ChunkSize: cfg.TTS.ChunkSize,
	}, logger)
	return set
}

// PipelineSteps orders a stage set for foreground execution.
func PipelineSteps(set workflow.StageSet) []stageexec.Step {
	return []stageexec.Step{
		{Handler: set.Transcription, StageName: "transcription", Processing: queue.StatusTranscribing, Done: queue.StatusTranscribed},
		{Handler: set.Paraphrase, StageName: "paraphrase", Processing: queue.StatusParaphrasing, Done: queue.StatusParaphrased},
		{Handler: set.Synthesis, StageName: "synthesis", Processing: queue.StatusSynthesizing, Done: queue.StatusSynthesized},
		{Handler: set.Publishing, StageName: "publishing", Processing: queue.StatusPublishing, Done: queue.StatusCompleted},
	}
}
