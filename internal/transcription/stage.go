package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"lectern/internal/deps"
	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/media/ffprobe"
	"lectern/internal/metrics"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/deepgram"
	"lectern/internal/stage"
)

const (
	stageName           = "transcription"
	progressStageLabel  = "Transcribing"
	transcriptFileName  = "transcript.txt"
	transcriptionSource = "deepgram"
)

// Transcriber is the service contract the stage drives.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, req Request, progress ProgressFunc) (Result, error)
}

// Stage integrates transcription with the workflow manager.
type Stage struct {
	store        *queue.Store
	service      Transcriber
	stagingDir   string
	defaults     deepgram.Options
	requirements []deps.Requirement
	logger       *slog.Logger
}

// StageOption customizes a Stage.
type StageOption func(*Stage)

// WithRequirements overrides the external binaries checked by HealthCheck.
func WithRequirements(reqs ...deps.Requirement) StageOption {
	return func(s *Stage) {
		s.requirements = reqs
	}
}

// NewStage constructs the transcription stage. defaults fill in model and
// language when a job leaves them blank.
func NewStage(store *queue.Store, service Transcriber, stagingDir string, defaults deepgram.Options, logger *slog.Logger, opts ...StageOption) *Stage {
	s := &Stage{
		store:        store,
		service:      service,
		stagingDir:   stagingDir,
		defaults:     defaults,
		requirements: deps.MediaRequirements(audio.DefaultFFmpeg, ffprobe.DefaultBinary),
		logger:       logging.NewComponentLogger(logger, "transcription-stage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "transcription-stage")
}

// Prepare primes queue progress fields before executing the stage.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if s == nil || s.service == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Transcription stage is not configured", nil)
	}
	if s.store == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Queue store unavailable", nil)
	}
	item.InitProgress(progressStageLabel, "Preparing recording")
	return s.store.UpdateProgress(ctx, item)
}

// Execute transcribes the item's source file and stores transcript.txt in
// its staging directory.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	if s == nil || s.service == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Transcription stage is not configured", nil)
	}
	if item == nil {
		return services.Wrap(services.ErrValidation, stageName, "execute", "Queue item is nil", nil)
	}
	if strings.TrimSpace(s.stagingDir) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "execute", "Staging directory not configured", nil)
	}

	req := s.request(item.Options.Transcription)
	s.logger.Info(
		"transcription started",
		logging.String(logging.FieldEventType, "transcription_start"),
		logging.String("source_file", item.SourcePath),
		logging.String("model", req.Options.Model),
		logging.String("language", req.Options.Language),
		logging.Bool("force_chunking", req.ForceChunking),
	)

	progress := stage.ProgressReporter(ctx, s.store, item, s.logger, progressStageLabel, "Sending audio to Deepgram")
	result, err := s.service.Transcribe(ctx, item.SourcePath, req, ProgressFunc(progress))
	metrics.RecordExternalRequest(transcriptionSource, err)
	if err != nil {
		return err
	}
	if strings.TrimSpace(result.Text) == "" {
		return services.Wrap(services.ErrValidation, stageName, "execute", "No speech detected in recording", nil)
	}

	path := filepath.Join(item.StagingRoot(s.stagingDir), transcriptFileName)
	if err := stage.WriteArtifact(stageName, "transcript", path, result.Text); err != nil {
		return err
	}
	item.TranscriptPath = path
	item.SetProgressComplete(progressStageLabel, completionMessage(result))

	s.logger.Info(
		"transcription completed",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("transcript_path", path),
		logging.Int("chunks", result.Chunks),
		logging.Int("characters", len([]rune(result.Text))),
		logging.Duration("audio_duration", result.Duration),
		logging.Duration("elapsed", result.Elapsed.Round(time.Millisecond)),
		logging.Float64("confidence", result.Confidence),
	)
	return nil
}

// HealthCheck reports whether the stage can run.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s == nil || s.service == nil {
		return stage.Unhealthy(stageName, "transcription service not configured")
	}
	if missing := deps.Missing(deps.CheckBinaries(s.requirements)); len(missing) > 0 {
		return stage.Unhealthy(stageName, missing[0].Detail)
	}
	return stage.Healthy(stageName)
}

func (s *Stage) request(opts queue.TranscriptionOptions) Request {
	dg := deepgram.Options{
		Model:       strings.TrimSpace(opts.Model),
		Language:    strings.TrimSpace(opts.Language),
		SmartFormat: opts.SmartFormat,
		Punctuate:   opts.Punctuate,
		Diarize:     opts.Diarize,
		Utterances:  opts.Utterances,
	}
	if dg.Model == "" {
		dg.Model = s.defaults.Model
	}
	if dg.Language == "" {
		dg.Language = s.defaults.Language
	}
	return Request{Options: dg, ForceChunking: opts.ForceChunking}
}

func completionMessage(result Result) string {
	if result.Chunks > 1 {
		return fmt.Sprintf("Transcript ready (%d chunks)", result.Chunks)
	}
	return "Transcript ready"
}
