package organizer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/organizer"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	s.last = payload
	return nil
}

func stagedItem(t *testing.T, cfg *config.Config, store *queue.Store, opts queue.JobOptions, withAudio bool) *queue.Item {
	t.Helper()
	item := testsupport.NewFile(t, store, "/lectures/Matematika 1.mp3", opts)
	root := item.StagingRoot(cfg.Paths.StagingDir)
	write := func(name, body string) string {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(root, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	item.TranscriptPath = write("transcript.txt", "prepis prednasky")
	item.ParaphrasePath = write("paraphrase.txt", "parafraze prednasky")
	if withAudio {
		item.AudioPath = write(item.OutputStem()+".wav", "RIFF....WAVEfmt audio bytes")
	}
	testsupport.SetStatus(t, store, item, queue.StatusPublishing)
	return item
}

func TestOrganizerPublishesArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := stagedItem(t, cfg, store, queue.JobOptions{}, true)
	stagingRoot := item.StagingRoot(cfg.Paths.StagingDir)

	notifier := &stubNotifier{}
	handler := organizer.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), notifier)
	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	lib := cfg.Paths.LibraryDir
	for name, want := range map[string]string{
		"Matematika 1_transcript.txt":  "prepis prednasky",
		"Matematika 1_paraphrased.txt": "parafraze prednasky",
		"Matematika 1.wav":             "RIFF....WAVEfmt audio bytes",
	} {
		data, err := os.ReadFile(filepath.Join(lib, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(data) != want {
			t.Fatalf("%s = %q, want %q", name, data, want)
		}
	}

	bundle := filepath.Join(lib, "Matematika 1_audio.zip")
	if item.BundlePath != bundle {
		t.Fatalf("bundle path = %q, want %q", item.BundlePath, bundle)
	}
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "Matematika 1.wav" {
		t.Fatalf("unexpected bundle entries: %+v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	payload, _ := io.ReadAll(rc)
	rc.Close()
	if string(payload) != "RIFF....WAVEfmt audio bytes" {
		t.Fatalf("unexpected bundle payload %q", payload)
	}

	if _, err := os.Stat(stagingRoot); !os.IsNotExist(err) {
		t.Fatalf("expected staging root removed, stat err=%v", err)
	}
	if item.TranscriptPath != filepath.Join(lib, "Matematika 1_transcript.txt") {
		t.Fatalf("transcript path not repointed: %q", item.TranscriptPath)
	}
	if item.OutputDir != lib || item.ProgressPercent != 100 {
		t.Fatalf("unexpected item after publish: %+v", item)
	}
	if len(notifier.events) != 1 || notifier.events[0] != notifications.EventLecturePublished {
		t.Fatalf("unexpected notifications: %v", notifier.events)
	}
	if notifier.last["outputDir"] != lib {
		t.Fatalf("unexpected payload %v", notifier.last)
	}
}

func TestOrganizerAllocatesFreeStem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish.CleanupStaging = false
	store := testsupport.MustOpenStore(t, cfg)
	item := stagedItem(t, cfg, store, queue.JobOptions{Publish: queue.PublishOptions{FilePrefix: "algebra"}}, false)

	existing := filepath.Join(cfg.Paths.LibraryDir, "algebra_transcript.txt")
	testsupport.WriteFile(t, existing, 4)

	handler := organizer.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), nil)
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LibraryDir, "algebra-2_transcript.txt")); err != nil {
		t.Fatalf("expected numbered transcript: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LibraryDir, "algebra-2_paraphrased.txt")); err != nil {
		t.Fatalf("expected numbered paraphrase: %v", err)
	}
	if item.BundlePath != "" {
		t.Fatalf("expected no bundle without audio, got %q", item.BundlePath)
	}
	if _, err := os.Stat(item.TranscriptPath); err != nil {
		t.Fatalf("staging transcript should remain: %v", err)
	}
}

func TestOrganizerHonorsOutputOverrideAndToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Publish.WriteParaphrase = false
	cfg.Publish.BundleAudio = false
	store := testsupport.MustOpenStore(t, cfg)
	override := filepath.Join(t.TempDir(), "custom")
	item := stagedItem(t, cfg, store, queue.JobOptions{Publish: queue.PublishOptions{OutputDir: override}}, true)

	handler := organizer.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), nil)
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	entries, err := os.ReadDir(override)
	if err != nil {
		t.Fatalf("read override: %v", err)
	}
	names := make(map[string]bool)
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	if !names["Matematika 1_transcript.txt"] || !names["Matematika 1.wav"] {
		t.Fatalf("missing published files: %v", names)
	}
	if names["Matematika 1_paraphrased.txt"] || names["Matematika 1_audio.zip"] {
		t.Fatalf("disabled artifacts were published: %v", names)
	}
	if item.ParaphrasePath != "" {
		t.Fatalf("unpublished paraphrase should be cleared after cleanup, got %q", item.ParaphrasePath)
	}
}

func TestOrganizerRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/empty.mp3", queue.JobOptions{})

	handler := organizer.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), nil)
	if err := handler.Execute(context.Background(), item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrganizerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := organizer.NewOrganizerWithDependencies(cfg, store, logging.NewNop(), nil)
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
	cfg.Paths.LibraryDir = ""
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatalf("expected unhealthy without library dir")
	}
}
