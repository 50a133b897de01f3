package transcription_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/deps"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/deepgram"
	"lectern/internal/testsupport"
	"lectern/internal/transcription"
)

type stubTranscriber struct {
	result transcription.Result
	err    error
	req    transcription.Request
	path   string
}

func (s *stubTranscriber) Transcribe(_ context.Context, path string, req transcription.Request, progress transcription.ProgressFunc) (transcription.Result, error) {
	s.path = path
	s.req = req
	if progress != nil {
		progress(0.5)
		progress(1)
	}
	return s.result, s.err
}

func TestStageWritesTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/fyzika.mp3", queue.JobOptions{
		Transcription: queue.TranscriptionOptions{Language: "en", SmartFormat: true, ForceChunking: true},
	})

	stub := &stubTranscriber{result: transcription.Result{Text: "Dobrý den, vítejte.", Chunks: 3}}
	stg := transcription.NewStage(store, stub, cfg.Paths.StagingDir, deepgram.DefaultOptions(), logging.NewNop())

	ctx := context.Background()
	if err := stg.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := stg.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if stub.path != "/lectures/fyzika.mp3" {
		t.Fatalf("unexpected source path %q", stub.path)
	}
	if stub.req.Options.Model != "nova-2" || stub.req.Options.Language != "en" || !stub.req.Options.SmartFormat || stub.req.Options.Diarize {
		t.Fatalf("unexpected request options: %+v", stub.req.Options)
	}
	if !stub.req.ForceChunking {
		t.Fatal("expected force chunking to carry through")
	}

	want := filepath.Join(cfg.Paths.StagingDir, "queue-1", "transcript.txt")
	if item.TranscriptPath != want {
		t.Fatalf("transcript path = %q, want %q", item.TranscriptPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(data) != "Dobrý den, vítejte." {
		t.Fatalf("unexpected transcript %q", data)
	}
	if item.ProgressPercent != 100 || item.ProgressMessage != "Transcript ready (3 chunks)" {
		t.Fatalf("unexpected progress: %v %q", item.ProgressPercent, item.ProgressMessage)
	}

	persisted, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if persisted.ProgressStage != "Transcribing" {
		t.Fatalf("expected progress persisted, got %+v", persisted)
	}
}

func TestStageRejectsEmptyTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/silence.wav", queue.JobOptions{})

	stg := transcription.NewStage(store, &stubTranscriber{result: transcription.Result{Text: "  "}}, cfg.Paths.StagingDir, deepgram.DefaultOptions(), nil)
	err := stg.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if item.TranscriptPath != "" {
		t.Fatalf("expected no transcript path, got %q", item.TranscriptPath)
	}
}

func TestStagePropagatesServiceError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})

	failure := services.Wrap(services.ErrTransient, "deepgram", "listen", "503", nil)
	stg := transcription.NewStage(store, &stubTranscriber{err: failure}, cfg.Paths.StagingDir, deepgram.DefaultOptions(), nil)
	if err := stg.Execute(context.Background(), item); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestStageHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var nilStage *transcription.Stage
	if health := nilStage.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected nil stage unhealthy")
	}

	missing := transcription.NewStage(store, &stubTranscriber{}, cfg.Paths.StagingDir, deepgram.DefaultOptions(), nil,
		transcription.WithRequirements(deps.Requirement{Name: "FFprobe", Command: "clearly-not-present-ffprobe"}))
	if health := missing.HealthCheck(context.Background()); health.Ready || health.Detail == "" {
		t.Fatalf("expected unhealthy stage, got %+v", health)
	}

	ready := transcription.NewStage(store, &stubTranscriber{}, cfg.Paths.StagingDir, deepgram.DefaultOptions(), nil,
		transcription.WithRequirements())
	if health := ready.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
}
