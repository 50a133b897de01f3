package queueaccess

import (
	"context"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/queue"
)

type daemonAccess struct {
	rpc *ipc.Client
}

// field unwraps a single value from an RPC reply.
func field[R any, V any](resp *R, err error, get func(*R) V) (V, error) {
	var zero V
	if err != nil {
		return zero, err
	}
	return get(resp), nil
}

func removedCount(r *ipc.QueueClearResponse) int64 { return r.Removed }
func updatedCount(r *ipc.QueueUpdateResponse) int64 { return r.Updated }

func (a *daemonAccess) Stats(context.Context) (map[string]int, error) {
	resp, err := a.rpc.Status()
	return field(resp, err, func(r *ipc.StatusResponse) map[string]int { return r.QueueStats })
}

func (a *daemonAccess) List(_ context.Context, statuses []string) ([]api.QueueItem, error) {
	resp, err := a.rpc.QueueList(statuses)
	return field(resp, err, func(r *ipc.QueueListResponse) []api.QueueItem { return r.Items })
}

func (a *daemonAccess) Describe(_ context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.rpc.QueueDescribe(id)
	if err != nil || resp == nil || !resp.Found {
		return nil, err
	}
	return &resp.Item, nil
}

func (a *daemonAccess) ClearAll(context.Context) (int64, error) {
	resp, err := a.rpc.QueueClear()
	return field(resp, err, removedCount)
}

func (a *daemonAccess) ClearCompleted(context.Context) (int64, error) {
	resp, err := a.rpc.QueueClearCompleted()
	return field(resp, err, removedCount)
}

func (a *daemonAccess) ClearFailed(context.Context) (int64, error) {
	resp, err := a.rpc.QueueClearFailed()
	return field(resp, err, removedCount)
}

func (a *daemonAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.rpc.QueueRemove(ids)
	return field(resp, err, removedCount)
}

func (a *daemonAccess) ResetStuck(context.Context) (int64, error) {
	resp, err := a.rpc.ResetStuck()
	return field(resp, err, updatedCount)
}

// RetryAll sends an empty ID list, which the daemon treats as every failed item.
func (a *daemonAccess) RetryAll(ctx context.Context) (int64, error) {
	return a.Retry(ctx, nil)
}

func (a *daemonAccess) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.rpc.QueueRetry(ids)
	return field(resp, err, updatedCount)
}

func (a *daemonAccess) Health(context.Context) (queue.HealthSummary, error) {
	resp, err := a.rpc.QueueHealth()
	return field(resp, err, func(r *ipc.QueueHealthResponse) queue.HealthSummary { return *r })
}
