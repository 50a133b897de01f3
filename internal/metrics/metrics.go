// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"lectern/internal/services"
)

var (
	itemsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lectern_items_enqueued_total",
		Help: "Lectures added to the queue by origin",
	}, []string{"origin"}) // origin=cli|inbox|recording|api

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lectern_stage_duration_seconds",
		Help:    "Wall time spent in a workflow stage",
		Buckets: prometheus.ExponentialBuckets(1, 2.5, 10), // 1s .. ~64m
	}, []string{"stage", "outcome"})

	stageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lectern_stage_failures_total",
		Help: "Stage failures by error class",
	}, []string{"stage", "class"})

	externalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lectern_external_requests_total",
		Help: "Calls to external speech and language services by outcome",
	}, []string{"service", "outcome"}) // outcome=success|failure|timeout|canceled

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lectern_queue_items",
		Help: "Queue items per status at the last poll",
	}, []string{"status"})
)

// RecordEnqueued counts a newly queued lecture.
func RecordEnqueued(origin string) {
	if origin == "" {
		origin = "unknown"
	}
	itemsEnqueued.WithLabelValues(origin).Inc()
}

// ObserveStage records the outcome and duration of one stage run.
func ObserveStage(stage string, elapsed time.Duration, err error) {
	outcome := Outcome(err)
	stageDuration.WithLabelValues(stage, outcome).Observe(elapsed.Seconds())
	if err != nil && outcome != "canceled" {
		stageFailures.WithLabelValues(stage, ErrorClass(err)).Inc()
	}
}

// RecordExternalRequest counts a call to an external service.
func RecordExternalRequest(service string, err error) {
	externalRequests.WithLabelValues(service, Outcome(err)).Inc()
}

// SetQueueDepth publishes per-status counts. Statuses missing from counts
// are reset to zero.
func SetQueueDepth(counts map[string]int, statuses []string) {
	for _, status := range statuses {
		queueDepth.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// Outcome maps an error to a low-cardinality outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, services.ErrCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failure"
	}
}

// ErrorClass maps an error to the service error marker it carries.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrValidation):
		return "validation"
	case errors.Is(err, services.ErrConfiguration):
		return "configuration"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrTimeout):
		return "timeout"
	case errors.Is(err, services.ErrTransient):
		return "transient"
	case errors.Is(err, services.ErrExternalTool):
		return "external_tool"
	case errors.Is(err, services.ErrCanceled):
		return "canceled"
	default:
		return "unknown"
	}
}
