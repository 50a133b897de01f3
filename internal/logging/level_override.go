package logging

import (
	"context"
	"log/slog"
	"strings"
)

// levelFloor drops records below a minimum level before delegating.
type levelFloor struct {
	next  slog.Handler
	level slog.Level
}

func (h *levelFloor) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *levelFloor) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *levelFloor) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelFloor{next: h.next.WithAttrs(attrs), level: h.level}
}

func (h *levelFloor) WithGroup(name string) slog.Handler {
	return &levelFloor{next: h.next.WithGroup(name), level: h.level}
}

// WithLevelOverride returns a logger that drops records below level. Records
// more verbose than the base handler's level stay hidden.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	next := logger.Handler()
	if floor, ok := next.(*levelFloor); ok {
		next = floor.next
	}
	return slog.New(&levelFloor{next: next, level: level})
}

// ForStage applies the logging.stage_overrides entry for stage, if any.
func ForStage(logger *slog.Logger, overrides map[string]string, stage string) *slog.Logger {
	if len(overrides) == 0 {
		return logger
	}
	level, ok := overrides[strings.ToLower(strings.TrimSpace(stage))]
	if !ok {
		return logger
	}
	return WithLevelOverride(logger, ParseLevel(level))
}
