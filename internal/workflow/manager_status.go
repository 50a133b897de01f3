package workflow

import (
	"context"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/stage"
)

// StatusSummary is the manager's view of itself for status commands.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth map[string]stage.Health
}

// Status snapshots the manager state, queue counts and per-stage health.
// Health checks run outside the lock since they may touch the network.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	var summary StatusSummary
	var steps []step

	m.mu.RLock()
	summary.Running = m.running
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		cp := *m.lastItem
		summary.LastItem = &cp
	}
	for _, l := range m.lanes {
		steps = append(steps, l.steps...)
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(steps))
	for _, s := range steps {
		if s.handler != nil {
			summary.StageHealth[s.name] = s.handler.HealthCheck(ctx)
		}
	}
	return summary
}

func (m *Manager) ItemLogPath(id int64) string {
	return m.itemLogs.Path(id)
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// setLastItem stores a copy so later mutations by the stage don't leak into
// status output.
func (m *Manager) setLastItem(item *queue.Item) {
	var cp *queue.Item
	if item != nil {
		v := *item
		cp = &v
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastItem = cp
}
