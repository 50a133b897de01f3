// Package staging manages the per-item working directories under
// paths.staging_dir. Each queue item owns queue-<id>; anything else in the
// staging root is scratch space left by chunked transcription.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"lectern/internal/logging"
)

const itemDirPrefix = "queue-"

// DirInfo describes one directory in the staging root.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ItemID  int64     `json:"itemId,omitempty"`
	ModTime time.Time `json:"modTime"`
	Size    int64     `json:"size"`
}

// Removal pairs a directory with the reason it was removed or the error that
// kept it in place.
type Removal struct {
	Path   string `json:"path"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// Result reports a sweep.
type Result struct {
	Removed []Removal `json:"removed"`
	Failed  []Removal `json:"failed"`
}

// SweepOptions controls which directories a sweep removes.
type SweepOptions struct {
	// Known reports whether a queue item still exists. Item directories of
	// unknown items are orphans.
	Known func(id int64) bool
	// MaxAge removes scratch directories not owned by an item once they are
	// older than this. Zero keeps them.
	MaxAge time.Duration
	// All removes every directory regardless of ownership.
	All bool
}

// ItemID extracts the queue item ID from an item directory name.
func ItemID(name string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(name), itemDirPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// List returns the staging root's directories sorted by name.
func List(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read staging dir: %w", err)
	}
	dirs := make([]DirInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(stagingDir, entry.Name())
		dir := DirInfo{Name: entry.Name(), Path: path, ModTime: info.ModTime(), Size: dirSize(path)}
		dir.ItemID, _ = ItemID(entry.Name())
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs, nil
}

// Sweep removes orphaned item directories and expired scratch directories.
func Sweep(ctx context.Context, stagingDir string, opts SweepOptions, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var result Result
	dirs, err := List(stagingDir)
	if err != nil {
		return result, err
	}
	cutoff := time.Now().Add(-opts.MaxAge)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		reason := removalReason(dir, opts, cutoff)
		if reason == "" {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Failed = append(result.Failed, Removal{Path: dir.Path, Reason: reason, Err: err})
			logger.Warn("failed to remove staging directory",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"))
			continue
		}
		result.Removed = append(result.Removed, Removal{Path: dir.Path, Reason: reason})
		logger.Info("removed staging directory",
			logging.String("path", dir.Path),
			logging.String("reason", reason),
			logging.String(logging.FieldEventType, "staging_cleanup"))
	}
	return result, nil
}

func removalReason(dir DirInfo, opts SweepOptions, cutoff time.Time) string {
	if opts.All {
		return "all"
	}
	if dir.ItemID > 0 {
		if opts.Known != nil && !opts.Known(dir.ItemID) {
			return "orphaned"
		}
		return ""
	}
	if opts.MaxAge > 0 && dir.ModTime.Before(cutoff) {
		return "expired"
	}
	return ""
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, infoErr := d.Info(); infoErr == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
