package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/stage"
	"lectern/internal/testsupport"
	"lectern/internal/workflow"
)

// blockingStage never completes so items stay where the test put them.
type blockingStage struct{}

func (blockingStage) Prepare(context.Context, *queue.Item) error { return nil }
func (blockingStage) Execute(ctx context.Context, _ *queue.Item) error {
	<-ctx.Done()
	return ctx.Err()
}
func (blockingStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("blocking")
}

type harness struct {
	client *ipc.Client
	store  *queue.Store
	hub    *logging.StreamHub
	dir    string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	hub := logging.NewStreamHub(128)
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Publishing: blockingStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, hub, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return harness{client: client, store: store, hub: hub, dir: t.TempDir()}
}

func (h harness) recording(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestIPCStartStatusStop(t *testing.T) {
	h := newHarness(t)

	startResp, err := h.client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}
	again, err := h.client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || !strings.Contains(again.Message, "already running") {
		t.Fatalf("expected already running message, got %+v", again)
	}

	status, err := h.client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() || status.LockPath == "" {
		t.Fatalf("unexpected status %+v", status)
	}

	stopResp, err := h.client.Stop()
	if err != nil || !stopResp.Stopped {
		t.Fatalf("Stop RPC failed: %v %+v", err, stopResp)
	}
	status, err = h.client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestIPCQueueOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	paraphrase := false
	added, err := h.client.AddFile(ipc.AddFileRequest{
		Path:      h.recording(t, "prednaska.m4a"),
		Title:     "Přednáška 1",
		Overrides: daemon.JobOverrides{Paraphrase: &paraphrase},
	})
	if err != nil {
		t.Fatalf("AddFile RPC failed: %v", err)
	}
	if added.Existing || added.Item.Title != "Přednáška 1" || added.Item.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected add response %+v", added)
	}
	if added.Item.Options.Paraphrase.Enabled {
		t.Fatal("expected paraphrase override to disable paraphrasing")
	}
	if _, err := h.client.AddFile(ipc.AddFileRequest{Path: h.recording(t, "slides.pdf")}); err == nil {
		t.Fatal("expected unsupported extension error")
	}

	failed := testsupport.NewFile(t, h.store, h.recording(t, "b.mp3"), queue.JobOptions{})
	failed.Status = queue.StatusFailed
	failed.FailedAtStatus = queue.StatusSynthesizing
	if err := h.store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	stuck := testsupport.NewFile(t, h.store, h.recording(t, "c.mp3"), queue.JobOptions{})
	stuck.Status = queue.StatusTranscribing
	if err := h.store.Update(ctx, stuck); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := h.client.QueueList(nil)
	if err != nil || len(list.Items) != 3 {
		t.Fatalf("QueueList = %v, %v", list, err)
	}
	failedOnly, err := h.client.QueueList([]string{"failed"})
	if err != nil || len(failedOnly.Items) != 1 || failedOnly.Items[0].ID != failed.ID {
		t.Fatalf("QueueList(failed) = %+v, %v", failedOnly, err)
	}
	if _, err := h.client.QueueList([]string{"nonsense"}); err == nil {
		t.Fatal("expected unknown status error")
	}

	desc, err := h.client.QueueDescribe(failed.ID)
	if err != nil || !desc.Found || desc.Item.FailedAtStatus != string(queue.StatusSynthesizing) {
		t.Fatalf("QueueDescribe = %+v, %v", desc, err)
	}
	missing, err := h.client.QueueDescribe(9999)
	if err != nil || missing.Found {
		t.Fatalf("expected not found, got %+v, %v", missing, err)
	}

	health, err := h.client.QueueHealth()
	if err != nil || health.Total != 3 || health.Failed != 1 || health.Processing != 1 {
		t.Fatalf("QueueHealth = %+v, %v", health, err)
	}

	reset, err := h.client.ResetStuck()
	if err != nil || reset.Updated != 1 {
		t.Fatalf("ResetStuck = %+v, %v", reset, err)
	}
	retried, err := h.client.QueueRetry([]int64{failed.ID})
	if err != nil || retried.Updated != 1 {
		t.Fatalf("QueueRetry = %+v, %v", retried, err)
	}
	reloaded, err := h.store.GetByID(ctx, failed.ID)
	if err != nil || reloaded.Status != queue.StatusParaphrased {
		t.Fatalf("expected retry to resume at paraphrased, got %+v, %v", reloaded, err)
	}

	removed, err := h.client.QueueRemove([]int64{stuck.ID})
	if err != nil || removed.Removed != 1 {
		t.Fatalf("QueueRemove = %+v, %v", removed, err)
	}
	if _, err := h.client.QueueRemove(nil); err == nil {
		t.Fatal("expected error for empty remove")
	}

	cleared, err := h.client.QueueClear()
	if err != nil || cleared.Removed != 2 {
		t.Fatalf("QueueClear = %+v, %v", cleared, err)
	}

	dbHealth, err := h.client.DatabaseHealth()
	if err != nil || !dbHealth.DatabaseExists || !dbHealth.IntegrityCheck {
		t.Fatalf("DatabaseHealth = %+v, %v", dbHealth, err)
	}
}

func TestIPCLogTailAndNotification(t *testing.T) {
	h := newHarness(t)
	h.hub.Publish(logging.LogEvent{Message: "first", ItemID: 1})
	h.hub.Publish(logging.LogEvent{Message: "second", ItemID: 2})

	tail, err := h.client.LogTail(ipc.LogTailRequest{})
	if err != nil {
		t.Fatalf("LogTail RPC failed: %v", err)
	}
	if len(tail.Events) != 2 || tail.Next != 2 {
		t.Fatalf("unexpected tail %+v", tail)
	}
	filtered, err := h.client.LogTail(ipc.LogTailRequest{ItemID: 2})
	if err != nil || len(filtered.Events) != 1 || filtered.Events[0].Message != "second" {
		t.Fatalf("unexpected filtered tail %+v, %v", filtered, err)
	}
	latest, err := h.client.LogTail(ipc.LogTailRequest{Tail: true, Limit: 1})
	if err != nil || len(latest.Events) != 1 || latest.Events[0].Message != "second" {
		t.Fatalf("unexpected latest tail %+v, %v", latest, err)
	}
	older, err := h.client.LogTail(ipc.LogTailRequest{Tail: true, Limit: 1, ItemID: 1})
	if err != nil || len(older.Events) != 1 || older.Events[0].Message != "first" {
		t.Fatalf("item filter must apply before the limit, got %+v, %v", older, err)
	}
	empty, err := h.client.LogTail(ipc.LogTailRequest{Since: tail.Next, Follow: true, WaitMillis: 20})
	if err != nil || len(empty.Events) != 0 || empty.Next != 2 {
		t.Fatalf("expected empty follow result, got %+v, %v", empty, err)
	}

	notify, err := h.client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification RPC failed: %v", err)
	}
	if notify.Sent {
		t.Fatal("expected notification to be skipped without a topic")
	}
}
