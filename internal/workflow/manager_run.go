package workflow

import (
	"context"
	"errors"
	"slices"
	"time"

	"lectern/internal/logging"
)

// Start launches one goroutine per configured lane. Preflight failures are
// recorded as the last error but do not prevent the lanes from running.
func (m *Manager) Start(ctx context.Context) error {
	lanes, runCtx, err := m.begin(ctx)
	if err != nil {
		return err
	}
	if err := m.runPreflightChecks(runCtx, m.logger); err != nil {
		m.setLastError(err)
	}
	for _, l := range lanes {
		go m.runLane(runCtx, l)
	}
	return nil
}

func (m *Manager) begin(ctx context.Context) ([]*lane, context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.running:
		return nil, nil, errors.New("workflow already running")
	case len(m.lanes) == 0:
		return nil, nil, errors.New("workflow stages not configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, l := range m.lanes {
		l.logger = m.laneLogger(l)
	}
	m.wg.Add(len(m.lanes))
	return slices.Clone(m.lanes), runCtx, nil
}

// Stop cancels the lanes and blocks until each has returned.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel, m.running = nil, false
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runLane(ctx context.Context, l *lane) {
	defer m.wg.Done()
	logger := l.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	claim, inFlight := l.claimable(), l.inFlight()

	for ctx.Err() == nil {
		if len(inFlight) > 0 {
			if err := m.heartbeat.ReclaimStaleItems(ctx, logger, inFlight); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("reclaim stale processing failed; stuck items may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}

		item, err := m.store.NextForStatuses(ctx, claim...)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.setLastError(err)
			logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			m.wait(ctx, m.retryInterval)
		case item == nil:
			m.wait(ctx, m.pollInterval)
		default:
			if err := m.processItem(ctx, l, logger, item); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				m.wait(ctx, m.retryInterval)
			}
		}
	}
}

// wait sleeps for d, or the poll interval when d is not positive, returning
// early if ctx ends.
func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = m.pollInterval
	}
	t := time.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
	case <-t.C:
	}
}
