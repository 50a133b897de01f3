package services

import "context"

// ctxKey namespaces the values the workflow attaches to a stage context.
type ctxKey uint8

const (
	keyItemID ctxKey = iota
	keyStage
	keyLane
	keyRequestID
)

// WithItemID tags ctx with the queue item being processed.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, keyItemID, id)
}

func ItemIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(keyItemID).(int64)
	return id, ok
}

func WithStage(ctx context.Context, stage string) context.Context {
	return attach(ctx, keyStage, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyStage) }

// WithLane tags ctx with the workflow lane, "transcription" or "text".
func WithLane(ctx context.Context, lane string) context.Context {
	return attach(ctx, keyLane, lane)
}

func LaneFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyLane) }

// WithRequestID tags ctx with the correlation ID of one stage run. It is sent
// to remote APIs and written to every log line of the run.
func WithRequestID(ctx context.Context, id string) context.Context {
	return attach(ctx, keyRequestID, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, keyRequestID) }

// attach skips empty values so lookups never report a blank string as set.
func attach(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key ctxKey) (string, bool) {
	s, _ := ctx.Value(key).(string)
	return s, s != ""
}
