package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/stage"
	"lectern/internal/testsupport"
	"lectern/internal/workflow"
)

type pipeline struct {
	transcription *stubStage
	paraphrase    *stubStage
	synthesis     *stubStage
	publishing    *stubStage
}

func newPipeline() pipeline {
	p := pipeline{
		transcription: newStubStage("transcription"),
		paraphrase:    newStubStage("paraphrase"),
		synthesis:     newStubStage("synthesis"),
		publishing:    newStubStage("publishing"),
	}
	p.transcription.executeHook = func(item *queue.Item) { item.TranscriptPath = "/staging/transcript.txt" }
	p.paraphrase.executeHook = func(item *queue.Item) { item.ParaphrasePath = "/staging/paraphrase.txt" }
	return p
}

func (p pipeline) set() workflow.StageSet {
	return workflow.StageSet{
		Transcription: p.transcription,
		Paraphrase:    p.paraphrase,
		Synthesis:     p.synthesis,
		Publishing:    p.publishing,
	}
}

func startManager(t *testing.T, mgr *workflow.Manager) {
	t.Helper()
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)
}

func TestManagerProcessesItemsThroughBothLanes(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/kvantovka.mp3", queue.JobOptions{})

	p := newPipeline()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(p.set())
	startManager(t, mgr)

	done := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	mgr.Stop()

	if done.ProgressPercent != 100 || done.Attempts != 0 {
		t.Fatalf("unexpected completed item %+v", done)
	}
	for _, s := range []*stubStage{p.transcription, p.paraphrase, p.synthesis, p.publishing} {
		if s.Calls() != 1 {
			t.Fatalf("stage %s ran %d times", s.name, s.Calls())
		}
	}
	if notifier.Count(notifications.EventQueueStarted) != 1 || notifier.Count(notifications.EventQueueCompleted) != 1 {
		t.Fatalf("expected queue start and completion notifications, got %v", notifier.events)
	}
	if notifier.Count(notifications.EventTranscriptionCompleted) != 1 || notifier.Count(notifications.EventParaphraseCompleted) != 1 {
		t.Fatalf("expected artifact notifications, got %v", notifier.events)
	}
	// Synthesis produced no audio path, so it stays silent.
	if notifier.Count(notifications.EventSynthesisCompleted) != 0 {
		t.Fatalf("unexpected synthesis notification")
	}

	logPath := filepath.Join(cfg.Paths.LogDir, workflow.ItemLogDirName, fmt.Sprintf("item-%d.log", item.ID))
	if mgr.ItemLogPath(item.ID) != logPath {
		t.Fatalf("ItemLogPath = %q, want %q", mgr.ItemLogPath(item.ID), logPath)
	}
	if info, err := os.Stat(logPath); err != nil || info.Size() == 0 {
		t.Fatalf("expected item log at %s: %v", logPath, err)
	}
}

func TestManagerRetriesTransientFailure(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/retry.mp3", queue.JobOptions{})

	p := newPipeline()
	p.paraphrase.executeErrs = []error{
		services.Wrap(services.ErrTransient, "paraphrase", "chat", "rate limited", nil),
	}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(p.set())
	startManager(t, mgr)

	done := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if p.paraphrase.Calls() != 2 {
		t.Fatalf("expected paraphrase to run twice, ran %d", p.paraphrase.Calls())
	}
	if done.Attempts != 0 || done.ErrorMessage != "" {
		t.Fatalf("expected attempts reset after success, got %+v", done)
	}
}

func TestManagerFailsAfterMaxAttempts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workflow.MaxAttempts = 2
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/flaky.mp3", queue.JobOptions{})

	transient := services.Wrap(services.ErrTransient, "synthesis", "generate", "server busy", nil)
	p := newPipeline()
	p.synthesis.executeErrs = []error{transient, transient, transient}
	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(p.set())
	startManager(t, mgr)

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	mgr.Stop()

	if p.synthesis.Calls() != 2 {
		t.Fatalf("expected 2 synthesis attempts, got %d", p.synthesis.Calls())
	}
	if failed.FailedAtStatus != queue.StatusSynthesizing || failed.Attempts != 2 {
		t.Fatalf("unexpected failed item %+v", failed)
	}
	if p.publishing.Calls() != 0 {
		t.Fatalf("publishing should not run after failure")
	}
	if notifier.Count(notifications.EventError) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.events)
	}
}

func TestManagerValidationFailureIsNotRetried(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/silent.mp3", queue.JobOptions{})

	p := newPipeline()
	p.transcription.executeErrs = []error{
		services.Wrap(services.ErrValidation, "transcription", "transcribe", "No speech detected in recording", nil),
	}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(p.set())
	startManager(t, mgr)

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if p.transcription.Calls() != 1 {
		t.Fatalf("validation errors must not be retried, ran %d", p.transcription.Calls())
	}
	if failed.FailedAtStatus != queue.StatusTranscribing || failed.ErrorMessage == "" {
		t.Fatalf("unexpected failed item %+v", failed)
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	p := newPipeline()
	p.synthesis.health = stage.Unhealthy("synthesis", "tts unreachable")
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	mgr.ConfigureStages(p.set())

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatalf("manager should not be running")
	}
	if len(status.StageHealth) != 4 {
		t.Fatalf("expected 4 stage health entries, got %d", len(status.StageHealth))
	}
	if health := status.StageHealth[workflow.StageSynthesis]; health.Ready {
		t.Fatalf("expected synthesis unhealthy, got %+v", health)
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), nil)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatalf("expected error without stages")
	}
}

func TestManagerPreflightFailureIsRecorded(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	checks := func(context.Context) []preflight.Result {
		return []preflight.Result{{Name: "Deepgram", Passed: false, Detail: "unauthorized"}}
	}
	mgr := workflow.NewManagerWithOptions(cfg, store, logging.NewNop(), nil, nil, workflow.WithPreflight(checks))
	mgr.ConfigureStages(newPipeline().set())
	startManager(t, mgr)

	if err := mgr.Start(context.Background()); err == nil {
		t.Fatalf("expected second Start to fail")
	}
	status := mgr.Status(context.Background())
	if !status.Running || status.LastError == "" {
		t.Fatalf("expected running manager with preflight error, got %+v", status)
	}
}
