// Package stageexec drives stage handlers in the foreground for the CLI
// `process` command. Items move through the same statuses the daemon uses,
// so a foreground run and a daemon run are interchangeable mid-pipeline.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/notifications"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/stage"
	"lectern/internal/textutil"
)

// Handler is the subset of stage.Handler a foreground run needs.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// Step is one stage and the statuses it moves an item through.
type Step struct {
	Handler    Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
}

// Options carries what every step of a run shares.
type Options struct {
	Logger   *slog.Logger
	Store    *queue.Store
	Notifier notifications.Service
	Item     *queue.Item
}

// RunSteps runs the steps that lie ahead of the item's current status, in
// order, and stops at the first failure.
func RunSteps(ctx context.Context, opts Options, steps []Step) error {
	for _, st := range steps {
		if opts.Item != nil && opts.Item.Status != queue.RollbackStatus(st.Processing) {
			continue
		}
		if err := Run(ctx, opts, st); err != nil {
			return err
		}
	}
	return nil
}

// Run executes a single step. A failure marks the item failed without
// retrying; the caller decides whether to run it again.
func Run(ctx context.Context, opts Options, st Step) error {
	switch {
	case st.Handler == nil:
		return fmt.Errorf("stage handler unavailable: %s", st.StageName)
	case opts.Store == nil:
		return errors.New("queue store is required")
	case opts.Item == nil:
		return errors.New("queue item is required")
	}
	item := opts.Item
	ctx = services.WithStage(ctx, st.StageName)
	logger := logging.WithContext(ctx, opts.Logger)
	if aware, ok := st.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(st.Processing)),
		logging.String("title", strings.TrimSpace(item.Title)),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
	)
	started := time.Now()
	markProcessing(item, st.Processing)
	if err := opts.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := st.Handler.Prepare(ctx, item); err != nil {
		metrics.ObserveStage(st.StageName, time.Since(started), err)
		return fail(ctx, logger, opts, st.StageName, err)
	}
	if err := opts.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	err := st.Handler.Execute(ctx, item)
	metrics.ObserveStage(st.StageName, time.Since(started), err)
	if err != nil {
		return fail(ctx, logger, opts, st.StageName, err)
	}

	if item.Status == st.Processing || item.Status == "" {
		item.Status = st.Done
	}
	item.LastHeartbeat = nil
	if err := opts.Store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String(logging.FieldProgressStage, strings.TrimSpace(item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return nil
}

func fail(ctx context.Context, logger *slog.Logger, opts Options, stageName string, cause error) error {
	item := opts.Item
	message := strings.TrimSpace(cause.Error())
	item.SetFailed(message)
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, services.ErrorHint(cause)),
		logging.Error(cause),
	)
	if err := opts.Store.Update(ctx, item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	if opts.Notifier != nil {
		payload := notifications.Payload{
			"error":   cause,
			"context": fmt.Sprintf("%s (item #%d)", stageName, item.ID),
		}
		if err := opts.Notifier.Publish(ctx, notifications.EventError, payload); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}
	return cause
}

func markProcessing(item *queue.Item, processing queue.Status) {
	now := time.Now().UTC()
	label := textutil.TitleCase(strings.ReplaceAll(string(processing), "_", " "))
	item.Status = processing
	item.ProgressStage = label
	item.ProgressMessage = label + " started"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
}
