package stage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"lectern/internal/queue"
	"lectern/internal/services"
)

type recordingStore struct {
	percents []float64
	err      error
}

func (r *recordingStore) UpdateProgress(_ context.Context, item *queue.Item) error {
	r.percents = append(r.percents, item.ProgressPercent)
	return r.err
}

func TestProgressReporterScalesAndClamps(t *testing.T) {
	store := &recordingStore{}
	item := &queue.Item{ID: 1}
	report := ProgressReporter(context.Background(), store, item, nil, "Transcribing", "Sending audio")

	report(0.25)
	report(1.5)
	report(-1)

	want := []float64{25, 100, 0}
	if len(store.percents) != len(want) {
		t.Fatalf("expected %d updates, got %v", len(want), store.percents)
	}
	for i := range want {
		if store.percents[i] != want[i] {
			t.Fatalf("update %d = %v, want %v", i, store.percents[i], want[i])
		}
	}
	if item.ProgressStage != "Transcribing" || item.ProgressMessage != "Sending audio" {
		t.Fatalf("unexpected progress labels: %+v", item)
	}
}

func TestProgressReporterIgnoresStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("locked")}
	item := &queue.Item{ID: 1}
	ProgressReporter(context.Background(), store, item, nil, "Stage", "")(0.5)
	if item.ProgressPercent != 50 {
		t.Fatalf("expected item progress updated, got %v", item.ProgressPercent)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue-1", "transcript.txt")
	if err := WriteArtifact("transcription", "transcript", path, "Dobrý den."); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	text, err := ReadArtifact("paraphrase", "transcript", path)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if text != "Dobrý den." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReadArtifactErrors(t *testing.T) {
	if _, err := ReadArtifact("paraphrase", "transcript", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.txt")
	if _, err := ReadArtifact("paraphrase", "transcript", missing); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
