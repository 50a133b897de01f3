package organizer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
)

// Errnos that mean the library mount is gone rather than the write being bad.
// Items hitting these are retried instead of failed.
var unavailableErrnos = []syscall.Errno{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

func isLibraryUnavailable(err error) bool {
	return err != nil && slices.ContainsFunc(unavailableErrnos, func(e syscall.Errno) bool {
		return errors.Is(err, e)
	})
}

func logLibraryUnavailable(logger *slog.Logger, err error) {
	logging.WarnWithContext(logger, "output library unavailable; item will be retried", "library_unavailable",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check library_dir mount"),
		logging.String(logging.FieldImpact, "lecture stays in staging until the library returns"),
	)
}

func notificationTitle(item *queue.Item) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return t
	}
	return filepath.Base(item.SourcePath)
}

// validatePublishedArtifact rejects a target that is missing, a directory or
// empty after the copy.
func validatePublishedArtifact(path string) error {
	invalid := func(msg string, cause error) error {
		return services.Wrap(services.ErrValidation, stageName, "validate output", msg, cause)
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return invalid("Failed to stat published file", err)
	case info.IsDir():
		return invalid("Published artifact points to a directory", nil)
	case info.Size() == 0:
		return invalid("Published file "+filepath.Base(path)+" is empty", nil)
	}
	return nil
}

// cleanupStaging deletes the item's queue-N staging directory and reports
// whether it is gone.
func (o *Organizer) cleanupStaging(ctx context.Context, item *queue.Item) bool {
	if item == nil || o.cfg == nil || strings.TrimSpace(o.cfg.Paths.StagingDir) == "" {
		return false
	}
	root := item.StagingRoot(strings.TrimSpace(o.cfg.Paths.StagingDir))
	if root == "" {
		return false
	}
	logger := logging.WithContext(ctx, o.logger)
	if err := os.RemoveAll(root); err != nil {
		logging.WarnWithContext(logger, "failed to clean staging directory; leftover files remain", "staging_cleanup_failed",
			logging.String("staging_root", root),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed; manual cleanup needed"),
		)
		return false
	}
	logger.Debug("cleaned staging directory", logging.String("staging_root", root))
	return true
}

// updateProgress persists progress first and only then applies it to item,
// so a failed write leaves the in-memory item matching the database.
func (o *Organizer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	next := *item
	next.ProgressMessage = message
	next.ProgressPercent = percent
	if o.store != nil {
		if err := o.store.UpdateProgress(ctx, &next); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger),
				"failed to persist publish progress; queue status may lag", "queue_progress_persist_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"),
				logging.String(logging.FieldImpact, "queue UI may show stale progress"),
			)
			return
		}
	}
	*item = next
}
