package testsupport

import (
	"context"
	"testing"

	"lectern/internal/config"
	"lectern/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewFile enqueues a source file with the provided options and fails the
// test on error.
func NewFile(t testing.TB, store *queue.Store, sourcePath string, opts queue.JobOptions) *queue.Item {
	t.Helper()

	item, err := store.NewFile(context.Background(), sourcePath, "", opts)
	if err != nil {
		t.Fatalf("store.NewFile: %v", err)
	}
	return item
}

// SetStatus moves an item to status and persists it.
func SetStatus(t testing.TB, store *queue.Store, item *queue.Item, status queue.Status) {
	t.Helper()

	item.Status = status
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
}
