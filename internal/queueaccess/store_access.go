package queueaccess

import (
	"context"
	"fmt"

	"lectern/internal/api"
	"lectern/internal/queue"
)

// localAccess serves CLI commands straight from the SQLite file while the
// daemon is stopped.
type localAccess struct {
	store *queue.Store
	svc   *api.QueueService
}

func (a *localAccess) Stats(ctx context.Context) (map[string]int, error) { return a.svc.Stats(ctx) }

func (a *localAccess) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	var filters []queue.Status
	for _, name := range statuses {
		st, ok := queue.ParseStatus(name)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", name)
		}
		filters = append(filters, st)
	}
	return a.svc.List(ctx, filters...)
}

func (a *localAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.svc.Describe(ctx, id)
}

func (a *localAccess) ClearAll(ctx context.Context) (int64, error) { return a.store.Clear(ctx) }

func (a *localAccess) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *localAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

// Remove stops at the first failing ID and reports how many rows went before it.
func (a *localAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		ok, err := a.store.Remove(ctx, id)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (a *localAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *localAccess) RetryAll(ctx context.Context) (int64, error) { return a.store.RetryFailed(ctx) }

func (a *localAccess) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *localAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}
