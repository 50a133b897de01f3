package logging

import (
	"context"
	"log/slog"

	"lectern/internal/services"
)

const (
	FieldComponent       = "component"
	FieldItemID          = "item_id"
	FieldStage           = "stage"
	FieldLane            = "lane"
	FieldCorrelationID   = "correlation_id"
	FieldEventType       = "event_type"
	FieldErrorHint       = "error_hint"
	FieldImpact          = "impact"
	FieldProgressStage   = "progress_stage"
	FieldProgressPercent = "progress_percent"
	FieldAlert           = "alert"
)

// ContextFields extracts the standard attributes carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.ItemIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
