// Package stage defines what a pipeline stage looks like to the workflow
// manager and the helpers the transcription, paraphrase, synthesis and
// publish stages share.
package stage

import (
	"context"
	"log/slog"

	"lectern/internal/queue"
)

// Handler is one step of the pipeline. Prepare runs after the item is
// claimed and before Execute; both may mutate the item, which the manager
// persists.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}

// LoggerAware stages receive the per-item logger before each run.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Health is a stage's readiness report.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports name as not ready, with detail explaining what is missing.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
