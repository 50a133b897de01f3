// Package synthesis turns paraphrased text into speech for queue items.
package synthesis

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/tts"
	"lectern/internal/stage"
)

const (
	stageName          = "synthesis"
	progressStageLabel = "Synthesizing"
)

// Generator is the service contract the stage drives.
type Generator interface {
	GenerateSingle(ctx context.Context, text, voice, format, outputPath string, chunkSize int, progress tts.ProgressFunc) (string, error)
}

// Defaults fill in job options left blank.
type Defaults struct {
	Voice     string
	Format    string
	ChunkSize int
}

// Stage synthesizes audio from paraphrase.txt.
type Stage struct {
	store      *queue.Store
	service    Generator
	stagingDir string
	defaults   Defaults
	logger     *slog.Logger
}

// NewStage constructs the synthesis stage. service may be nil when no TTS
// server is configured.
func NewStage(store *queue.Store, service Generator, stagingDir string, defaults Defaults, logger *slog.Logger) *Stage {
	return &Stage{
		store:      store,
		service:    service,
		stagingDir: stagingDir,
		defaults:   defaults,
		logger:     logging.NewComponentLogger(logger, "synthesis-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "synthesis-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s == nil || s.store == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Queue store unavailable", nil)
	}
	item.InitProgress(progressStageLabel, "Loading paraphrase")
	return s.store.UpdateProgress(ctx, item)
}

// Execute generates the audio file. Jobs with synthesis disabled, and jobs
// without a paraphrase, are passed through.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Queue item is nil", nil)
	}
	if reason := skipReason(item); reason != "" {
		item.AudioPath = ""
		item.SetProgressComplete(progressStageLabel, "Skipped")
		s.logger.Info(
			"synthesis skipped",
			logging.String(logging.FieldEventType, "synthesis_skipped"),
			logging.String("reason", reason),
		)
		return nil
	}
	if s.service == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Speech synthesis requested but tts.url is not configured", nil)
	}
	if strings.TrimSpace(s.stagingDir) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Staging directory not configured", nil)
	}

	text, err := stage.ReadArtifact(stageName, "paraphrase", item.ParaphrasePath)
	if err != nil {
		return err
	}
	voice, format, chunkSize := s.settings(item.Options.TTS)
	if _, err := tts.ResolveVoice(voice); err != nil {
		return err
	}
	output := filepath.Join(item.StagingRoot(s.stagingDir), item.OutputStem()+"."+format)

	s.logger.Info(
		"synthesis started",
		logging.String(logging.FieldEventType, "synthesis_start"),
		logging.String("voice", voice),
		logging.String("format", format),
		logging.Int("chunk_size", chunkSize),
		logging.Int("characters", len([]rune(text))),
	)
	progress := stage.ProgressReporter(ctx, s.store, item, s.logger, progressStageLabel, "Generating speech")
	path, err := s.service.GenerateSingle(ctx, text, voice, format, output, chunkSize, tts.ProgressFunc(progress))
	metrics.RecordExternalRequest("tts", err)
	if err != nil {
		return err
	}
	item.AudioPath = path
	item.SetProgressComplete(progressStageLabel, "Audio ready")

	s.logger.Info(
		"synthesis completed",
		logging.String(logging.FieldEventType, "synthesis_complete"),
		logging.String("audio_path", path),
	)
	return nil
}

// HealthCheck reports whether the stage can run. A stage without a TTS
// server is ready but marked disabled.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s == nil {
		return stage.Unhealthy(stageName, "synthesis stage not configured")
	}
	if s.service == nil {
		return stage.Health{Name: stageName, Ready: true, Detail: "disabled"}
	}
	return stage.Healthy(stageName)
}

func skipReason(item *queue.Item) string {
	switch {
	case !item.Options.TTS.Enabled:
		return "disabled for job"
	case strings.TrimSpace(item.ParaphrasePath) == "":
		return "no paraphrase available"
	default:
		return ""
	}
}

func (s *Stage) settings(opts queue.TTSOptions) (string, string, int) {
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = s.defaults.Voice
	}
	if voice == "" {
		voice = tts.DefaultVoice
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = strings.ToLower(strings.TrimSpace(s.defaults.Format))
	}
	if format == "" {
		format = tts.DefaultFormat
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.defaults.ChunkSize
	}
	return voice, format, chunkSize
}
