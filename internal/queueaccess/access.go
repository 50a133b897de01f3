// Package queueaccess lets CLI commands operate on the queue without caring
// whether the daemon is up. A running daemon is reached over IPC so its
// in-memory state stays authoritative; otherwise the SQLite store is opened
// directly.
package queueaccess

import (
	"context"
	"fmt"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/queue"
)

// Access is the queue surface shared by the IPC and store backends.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// Session pairs an Access with the resource that must be released after use.
type Session struct {
	Access    Access
	ViaDaemon bool
	close     func() error
}

func (s Session) Close() error {
	if s.close != nil {
		return s.close()
	}
	return nil
}

// OpenWithFallback dials the daemon and, when that fails, opens the store.
// Dial errors are swallowed; only a store failure is reported.
func OpenWithFallback(dial func() (*ipc.Client, error), openStore func() (*queue.Store, error)) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: &daemonAccess{rpc: client}, ViaDaemon: true, close: client.Close}, nil
		}
	}
	if openStore == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: &localAccess{store: store, svc: api.NewQueueService(store)},
		close:  store.Close,
	}, nil
}
