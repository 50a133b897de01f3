package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/stage"
)

const (
	stageName          = "publishing"
	progressStageLabel = "Publishing"
)

// Organizer copies staged artifacts into the output library.
type Organizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewOrganizer constructs the publishing stage handler using default dependencies.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Organizer {
	return NewOrganizerWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewOrganizerWithDependencies allows injecting collaborators (used in tests).
func NewOrganizerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Organizer {
	return &Organizer{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "organizer"),
		notifier: notifier,
	}
}

// SetLogger allows the workflow manager to route stage logs into the item-scoped logger.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	if o == nil {
		return
	}
	o.logger = logging.NewComponentLogger(logger, "organizer")
}

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	item.InitProgress(progressStageLabel, "Preparing library publish")
	logger.Info(
		"starting publish preparation",
		logging.String("transcript_path", strings.TrimSpace(item.TranscriptPath)),
		logging.String("paraphrase_path", strings.TrimSpace(item.ParaphrasePath)),
		logging.String("audio_path", strings.TrimSpace(item.AudioPath)),
	)
	if o.store == nil {
		return nil
	}
	return o.store.UpdateProgress(ctx, item)
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	if o.cfg == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "validate inputs", "Configuration unavailable", nil)
	}
	if strings.TrimSpace(item.TranscriptPath) == "" {
		return services.Wrap(
			services.ErrValidation,
			stageName,
			"validate inputs",
			"No transcript present for publishing; run transcription before publishing or check staging_dir permissions",
			nil,
		)
	}

	outputDir := o.outputDir(item)
	if outputDir == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "resolve output dir", "Output directory not configured; set paths.library_dir in your lectern config.toml", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		if isLibraryUnavailable(err) {
			logLibraryUnavailable(logger, err)
			return services.Wrap(services.ErrTransient, stageName, "ensure output dir", "Output library unavailable", err)
		}
		return services.Wrap(services.ErrConfiguration, stageName, "ensure output dir", "Failed to create output directory", err)
	}

	plan := o.planArtifacts(item)
	stem, err := o.resolveStem(outputDir, item.OutputStem(), plan)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "allocate filenames", "Unable to allocate output filenames", err)
	}
	logger.Info(
		"publishing lecture",
		logging.String("output_dir", outputDir),
		logging.String("file_stem", stem),
		logging.Int("artifacts", len(plan)),
	)

	published := make(map[artifactKind]string, len(plan))
	for idx, art := range plan {
		o.updateProgress(ctx, item, fmt.Sprintf("Writing %s", art.label), float64(idx)*90/float64(len(plan)))
		target := filepath.Join(outputDir, art.fileName(stem))
		if err := art.write(target); err != nil {
			if isLibraryUnavailable(err) {
				logLibraryUnavailable(logger, err)
				return services.Wrap(services.ErrTransient, stageName, "write "+art.label, "Output library unavailable", err)
			}
			return services.Wrap(services.ErrTransient, stageName, "write "+art.label, fmt.Sprintf("Failed to write %s", filepath.Base(target)), err)
		}
		if err := validatePublishedArtifact(target); err != nil {
			return err
		}
		published[art.kind] = target
		logger.Debug("artifact published", logging.String("kind", art.label), logging.String("path", target))
	}

	o.applyPublished(ctx, item, outputDir, published)
	item.SetProgressComplete(progressStageLabel, fmt.Sprintf("Available in library: %s", stem))
	logger.Info(
		"publish completed",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.String("output_dir", outputDir),
		logging.String("progress_message", item.ProgressMessage),
	)

	if o.notifier != nil {
		if err := o.notifier.Publish(ctx, notifications.EventLecturePublished, notifications.Payload{
			"title":     notificationTitle(item),
			"outputDir": outputDir,
			"files":     len(published),
		}); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	}
	return nil
}

// HealthCheck verifies the library directory is configured.
func (o *Organizer) HealthCheck(context.Context) stage.Health {
	if o.cfg == nil {
		return stage.Unhealthy(stageName, "configuration unavailable")
	}
	if strings.TrimSpace(o.cfg.Paths.LibraryDir) == "" {
		return stage.Unhealthy(stageName, "library directory not configured")
	}
	if o.store == nil {
		return stage.Unhealthy(stageName, "queue store unavailable")
	}
	return stage.Healthy(stageName)
}

func (o *Organizer) outputDir(item *queue.Item) string {
	if dir := strings.TrimSpace(item.Options.Publish.OutputDir); dir != "" {
		return dir
	}
	if dir := strings.TrimSpace(item.OutputDir); dir != "" {
		return dir
	}
	return strings.TrimSpace(o.cfg.Paths.LibraryDir)
}

// applyPublished points the item at its library copies and drops the
// staging directory when configured to.
func (o *Organizer) applyPublished(ctx context.Context, item *queue.Item, outputDir string, published map[artifactKind]string) {
	item.OutputDir = outputDir
	item.BundlePath = published[artifactBundle]
	if !o.cfg.Publish.CleanupStaging {
		return
	}
	if !o.cleanupStaging(ctx, item) {
		return
	}
	item.TranscriptPath = published[artifactTranscript]
	item.ParaphrasePath = published[artifactParaphrase]
	item.AudioPath = published[artifactAudio]
}
