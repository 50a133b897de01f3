package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/queue"
	"lectern/internal/stage"
)

// processItem claims item for the step matching its status and runs it.
// Each run gets a fresh request ID that follows it into logs and API calls.
func (m *Manager) processItem(ctx context.Context, l *lane, laneLogger *slog.Logger, item *queue.Item) error {
	st, ok := l.stepFor(item.Status)
	if !ok {
		laneLogger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.wait(ctx, m.pollInterval)
		return nil
	}

	item.RequestID = uuid.NewString()
	ctx = withStageContext(ctx, l, st.name, item, item.RequestID)
	logger, release := m.stageLogger(ctx, laneLogger, item)
	defer release()
	if aware, ok := st.handler.(stage.LoggerAware); ok {
		aware.SetLogger(logger)
	}

	if err := m.claim(ctx, st.working, item); err != nil {
		logger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	return m.executeStage(ctx, logger, st, item)
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, st step, item *queue.Item) error {
	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(st.working)),
		logging.String("title", strings.TrimSpace(item.Title)),
		logging.String("source_file", strings.TrimSpace(item.SourcePath)),
		logging.Int("attempt", item.Attempts+1),
	)

	fail := func(err error) error {
		metrics.ObserveStage(st.name, time.Since(started), err)
		m.handleStageFailure(ctx, logger, st, item, err)
		m.setLastError(err)
		return err
	}
	persistFailed := func(what string, err error) error {
		wrapped := fmt.Errorf("persist %s: %w", what, err)
		logger.Error("failed to persist "+what, logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	if st.handler == nil {
		err := fmt.Errorf("stage %s missing handler", st.name)
		item.SetFailed(err.Error())
		if updateErr := m.store.Update(ctx, item); updateErr != nil {
			logger.Error("failed to persist missing handler failure", logging.Error(updateErr))
		}
		m.setLastError(err)
		return err
	}

	if err := st.handler.Prepare(ctx, item); err != nil {
		return fail(err)
	}
	if err := m.store.Update(ctx, item); err != nil {
		return persistFailed("stage preparation", err)
	}

	if err := m.executeWithHeartbeat(ctx, st.handler, item); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		return fail(err)
	}
	metrics.ObserveStage(st.name, time.Since(started), nil)

	advance(item, st)
	if err := m.store.Update(ctx, item); err != nil {
		return persistFailed("stage result", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(item.Status)),
		logging.String(logging.FieldProgressStage, strings.TrimSpace(item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(started)),
	)
	m.setLastItem(item)
	m.notifyStageCompleted(ctx, st.name, item)
	m.refreshQueueDepth(ctx)
	m.checkQueueCompletion(ctx)
	return nil
}

// advance moves a successfully executed item to the step's done status unless
// the handler already chose another one. Attempts count consecutive failures
// of one stage, so success clears them.
func advance(item *queue.Item, st step) {
	if item.Status == st.working || item.Status == "" {
		item.Status = st.to
	}
	item.Attempts = 0
	item.LastHeartbeat = nil
	if item.Status != queue.StatusCompleted {
		return
	}
	item.ProgressPercent = max(item.ProgressPercent, 100)
	if strings.TrimSpace(item.ProgressMessage) == "" {
		item.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
	}
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler StageHandler, item *queue.Item) error {
	beatCtx, stopBeat := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go m.heartbeat.StartLoop(beatCtx, &wg, item.ID)
	defer wg.Wait()
	defer stopBeat()
	return handler.Execute(ctx, item)
}

// claim marks item as being processed and stamps its first heartbeat.
func (m *Manager) claim(ctx context.Context, working queue.Status, item *queue.Item) error {
	if working == "" {
		return errors.New("processing status must not be empty")
	}
	now := time.Now().UTC()
	label := deriveStageLabel(working)
	item.Status = working
	item.ProgressStage = label
	item.ProgressMessage = label + " started"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	m.onItemStarted(ctx)
	return nil
}
