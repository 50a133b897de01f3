package paraphrasing

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/paraphraser"
	"lectern/internal/stage"
	"lectern/internal/textutil"
)

const (
	stageName          = "paraphrase"
	progressStageLabel = "Paraphrasing"
	paraphraseFileName = "paraphrase.txt"
)

// Paraphraser is the service contract the stage drives.
type Paraphraser interface {
	Paraphrase(ctx context.Context, text string, opts paraphraser.Options, progress paraphraser.ProgressFunc) (paraphraser.Result, error)
}

// Stage rewrites transcripts for queue items.
type Stage struct {
	store    *queue.Store
	service  Paraphraser
	defaults paraphraser.Options
	logger   *slog.Logger
}

// NewStage constructs the paraphrase stage. service may be nil when
// paraphrasing is not configured; jobs that request it then fail with a
// configuration error.
func NewStage(store *queue.Store, service Paraphraser, defaults paraphraser.Options, logger *slog.Logger) *Stage {
	return &Stage{
		store:    store,
		service:  service,
		defaults: defaults,
		logger:   logging.NewComponentLogger(logger, "paraphrase-stage"),
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "paraphrase-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s == nil || s.store == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Queue store unavailable", nil)
	}
	if !item.Options.Paraphrase.Enabled {
		item.InitProgress(progressStageLabel, "Paraphrasing disabled for this job")
	} else {
		item.InitProgress(progressStageLabel, "Loading transcript")
	}
	return s.store.UpdateProgress(ctx, item)
}

// Execute paraphrases the transcript, or skips when the job disabled it.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Queue item is nil", nil)
	}
	if !item.Options.Paraphrase.Enabled {
		item.ParaphrasePath = ""
		item.SetProgressComplete(progressStageLabel, "Skipped")
		s.logger.Info(
			"paraphrase skipped",
			logging.String(logging.FieldEventType, "paraphrase_skipped"),
			logging.String("reason", "disabled for job"),
		)
		return nil
	}
	if s.service == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Paraphrasing requested but no chat API is configured", nil)
	}

	transcript, err := stage.ReadArtifact(stageName, "transcript", item.TranscriptPath)
	if err != nil {
		return err
	}
	opts := s.options(item.Options.Paraphrase)
	s.logger.Info(
		"paraphrase started",
		logging.String(logging.FieldEventType, "paraphrase_start"),
		logging.String("style", opts.Style),
		logging.String("formality", opts.Formality),
		logging.String("language", opts.Language),
		logging.Int("characters", len([]rune(transcript))),
	)

	progress := stage.ProgressReporter(ctx, s.store, item, s.logger, progressStageLabel, "Rewriting transcript")
	result, err := s.service.Paraphrase(ctx, transcript, opts, paraphraser.ProgressFunc(progress))
	metrics.RecordExternalRequest("llm", err)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return services.Wrap(services.ErrExternalTool, stageName, "execute", "Chat API returned an empty paraphrase", nil)
	}

	path := filepath.Join(filepath.Dir(item.TranscriptPath), paraphraseFileName)
	if err := stage.WriteArtifact(stageName, "paraphrase", path, text); err != nil {
		return err
	}
	item.ParaphrasePath = path
	item.SetProgressComplete(progressStageLabel, "Paraphrase ready")

	s.logger.Info(
		"paraphrase completed",
		logging.String(logging.FieldEventType, "paraphrase_complete"),
		logging.String("paraphrase_path", path),
		logging.Int("chunks", result.Chunks),
		logging.Float64("similarity", textutil.Similarity(transcript, text)),
		logging.Duration("elapsed", result.Elapsed.Round(time.Millisecond)),
	)
	return nil
}

// HealthCheck reports whether the stage can run. A stage without a chat
// client is ready but marked disabled.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s == nil {
		return stage.Unhealthy(stageName, "paraphrase stage not configured")
	}
	if s.service == nil {
		return stage.Health{Name: stageName, Ready: true, Detail: "disabled"}
	}
	return stage.Healthy(stageName)
}

func (s *Stage) options(job queue.ParaphraseOptions) paraphraser.Options {
	opts := s.defaults
	if v := strings.TrimSpace(job.Style); v != "" {
		opts.Style = v
	}
	if v := strings.TrimSpace(job.Formality); v != "" {
		opts.Formality = v
	}
	if v := strings.TrimSpace(job.Language); v != "" {
		opts.Language = v
	}
	return opts
}
