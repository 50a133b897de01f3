package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
)

// ProgressStore persists progress fields for an item.
type ProgressStore interface {
	UpdateProgress(context.Context, *queue.Item) error
}

// ProgressReporter returns a callback that maps service fractions (0..1) to
// item progress percentages, persists them, and logs sampled updates.
// Persistence failures are logged and otherwise ignored.
func ProgressReporter(ctx context.Context, store ProgressStore, item *queue.Item, logger *slog.Logger, label, message string) func(float64) {
	sampler := logging.NewProgressSampler(10)
	return func(fraction float64) {
		if item == nil {
			return
		}
		fraction = min(max(fraction, 0), 1)
		percent := fraction * 100
		item.SetProgress(label, message, percent)
		if store != nil {
			if err := store.UpdateProgress(ctx, item); err != nil && logger != nil {
				logger.Debug("progress update failed", logging.Error(err))
			}
		}
		if logger != nil && sampler.ShouldLog(percent, label) {
			logger.Info(
				"stage progress",
				logging.String(logging.FieldEventType, "stage_progress"),
				logging.String(logging.FieldProgressStage, label),
				logging.Float64(logging.FieldProgressPercent, percent),
			)
		}
	}
}

// ReadArtifact loads a text artifact produced by an earlier stage.
func ReadArtifact(stageName, kind, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "read "+kind, fmt.Sprintf("No %s recorded for item", kind), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, stageName, "read "+kind, fmt.Sprintf("%s missing at %s", kind, path), err)
		}
		return "", services.Wrap(services.ErrTransient, stageName, "read "+kind, "", err)
	}
	return string(data), nil
}

// WriteArtifact atomically writes a text artifact for later stages.
func WriteArtifact(stageName, kind, path, text string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "write "+kind, fmt.Sprintf("Failed to write %s", kind), err)
	}
	return nil
}
