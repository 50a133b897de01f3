package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/textutil"
)

// ItemLogDirName is the subdirectory of paths.log_dir holding per-item logs.
const ItemLogDirName = "items"

// ItemLogger opens the per-item JSON log that stage runs write to. Records
// are mirrored to the stream hub so log tailing still sees them.
type ItemLogger struct {
	dir    string
	level  string
	stream *logging.StreamHub
}

// NewItemLogger builds an ItemLogger rooted at cfg.Paths.LogDir.
func NewItemLogger(cfg *config.Config, stream *logging.StreamHub) *ItemLogger {
	l := &ItemLogger{stream: stream}
	if cfg != nil {
		if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
			l.dir = filepath.Join(dir, ItemLogDirName)
		}
		l.level = cfg.Logging.Level
	}
	return l
}

// Path returns the log file for itemID, or "" when no log directory is set.
func (l *ItemLogger) Path(itemID int64) string {
	if l == nil || l.dir == "" {
		return ""
	}
	return filepath.Join(l.dir, fmt.Sprintf("item-%d.log", itemID))
}

// Open returns a logger writing to the item log and a release func that
// closes the file.
func (l *ItemLogger) Open(item *queue.Item) (*slog.Logger, func(), error) {
	path := l.Path(item.ID)
	if path == "" {
		return nil, func() {}, fmt.Errorf("item log: log directory not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, func() {}, fmt.Errorf("item log: create directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, func() {}, fmt.Errorf("item log: open %s: %w", path, err)
	}
	logger, err := logging.New(logging.Options{
		Level:  l.level,
		Format: "json",
		Stream: l.stream,
		Writer: file,
	})
	if err != nil {
		_ = file.Close()
		return nil, func() {}, err
	}
	return logger.With(logging.Int64(logging.FieldItemID, item.ID)), func() { _ = file.Close() }, nil
}

func (m *Manager) laneLogger(l *lane) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-%s-runner", l.name())),
		logging.String(logging.FieldLane, l.name()),
	)
}

// stageLogger returns the logger a stage run writes to. Item processing logs
// only to the item log; the lane logger is the fallback when that log cannot
// be opened.
func (m *Manager) stageLogger(ctx context.Context, laneLogger *slog.Logger, item *queue.Item) (*slog.Logger, func()) {
	base := laneLogger
	if base == nil {
		base = logging.NewNop()
	}
	release := func() {}
	if item != nil && m.itemLogs != nil && m.itemLogs.dir != "" {
		itemLogger, closeFn, err := m.itemLogs.Open(item)
		if err != nil {
			base.Warn("item log unavailable", logging.Error(err))
		} else {
			base = itemLogger
			release = closeFn
		}
	}

	logger := logging.WithContext(ctx, base)
	if m.cfg != nil {
		if stageName, ok := services.StageFromContext(ctx); ok {
			logger = logging.ForStage(logger, m.cfg.Logging.StageOverrides, stageName)
		}
	}
	return logger, release
}

func withStageContext(ctx context.Context, l *lane, stageName string, item *queue.Item, requestID string) context.Context {
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if l != nil {
		ctx = services.WithLane(ctx, l.name())
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	return textutil.TitleCase(string(status))
}
