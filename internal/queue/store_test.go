package queue_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/testsupport"
)

func sampleOptions() queue.JobOptions {
	return queue.JobOptions{
		Transcription: queue.TranscriptionOptions{Model: "nova-2", Language: "cs", SmartFormat: true, Punctuate: true},
		Paraphrase:    queue.ParaphraseOptions{Enabled: true, Style: "academic", Formality: "formal", Language: "cs"},
		TTS:           queue.TTSOptions{Enabled: true, Voice: "czech_male", Format: "wav", ChunkSize: 3000},
		Publish:       queue.PublishOptions{OutputDir: "/srv/lectures", FilePrefix: "fyzika"},
	}
}

func TestNewFileRoundTripsOptions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := services.WithRequestID(context.Background(), "req-42")
	item, err := store.NewFile(ctx, "/lectures/uvod-do-fyziky.mp3", "", sampleOptions())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}

	fetched, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected item to exist")
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", fetched.Status)
	}
	if fetched.Title != "Uvod Do Fyziky" {
		t.Fatalf("expected derived title, got %q", fetched.Title)
	}
	if fetched.Options != sampleOptions() {
		t.Fatalf("options not preserved: %+v", fetched.Options)
	}
	if fetched.OutputDir != "/srv/lectures" {
		t.Fatalf("expected output dir from options, got %q", fetched.OutputDir)
	}
	if fetched.RequestID != "req-42" {
		t.Fatalf("expected request id, got %q", fetched.RequestID)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", fetched)
	}
}

func TestNewFileRequiresPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewFile(context.Background(), "  ", "Title", queue.JobOptions{}); err == nil {
		t.Fatal("expected error when source path missing")
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item, err := store.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item, got %+v", item)
	}
}

func TestFindBySourcePathReturnsNewest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	second := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	testsupport.NewFile(t, store, "/lectures/b.wav", queue.JobOptions{})

	found, err := store.FindBySourcePath(ctx, "/lectures/a.wav")
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if found == nil || found.ID != second.ID || found.ID == first.ID {
		t.Fatalf("expected newest item %d, got %+v", second.ID, found)
	}

	missing, err := store.FindBySourcePath(ctx, "/lectures/none.wav")
	if err != nil {
		t.Fatalf("FindBySourcePath missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown path, got %+v", missing)
	}
}

func TestUpdatePersistsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	item.Status = queue.StatusSynthesized
	item.TranscriptPath = "/staging/queue-1/transcript.txt"
	item.ParaphrasePath = "/staging/queue-1/paraphrase.txt"
	item.AudioPath = "/staging/queue-1/a.wav"
	item.BundlePath = "/library/a_audio.zip"
	item.Attempts = 2
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusSynthesized || got.TranscriptPath != item.TranscriptPath ||
		got.ParaphrasePath != item.ParaphrasePath || got.AudioPath != item.AudioPath ||
		got.BundlePath != item.BundlePath || got.Attempts != 2 {
		t.Fatalf("unexpected persisted item: %+v", got)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"transcribing", queue.StatusTranscribing, queue.StatusPending},
		{"paraphrasing", queue.StatusParaphrasing, queue.StatusTranscribed},
		{"synthesizing", queue.StatusSynthesizing, queue.StatusParaphrased},
		{"publishing", queue.StatusPublishing, queue.StatusSynthesized},
		{"completed untouched", queue.StatusCompleted, queue.StatusCompleted},
	}
	var ids []int64
	now := time.Now()
	for i, tc := range cases {
		item := testsupport.NewFile(t, store, fmt.Sprintf("/lectures/reset-%d.wav", i), queue.JobOptions{})
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		item.LastHeartbeat = &now
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 items reset, got %d", count)
	}

	for i, tc := range cases {
		updated, err := store.GetByID(ctx, ids[i])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if tc.initialStatus != queue.StatusCompleted && updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	b := testsupport.NewFile(t, store, "/lectures/b.wav", queue.JobOptions{})
	testsupport.SetStatus(t, store, b, queue.StatusTranscribed)
	c := testsupport.NewFile(t, store, "/lectures/c.wav", queue.JobOptions{})
	c.ErrorMessage = "boom"
	testsupport.SetStatus(t, store, c, queue.StatusFailed)

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusTranscribed, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 || filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered result: %+v", filtered)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusTranscribed, queue.StatusParaphrased)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != b.ID {
		t.Fatalf("expected item B next, got %+v", next)
	}
	none, err := store.NextForStatuses(ctx, queue.StatusPublishing)
	if err != nil {
		t.Fatalf("NextForStatuses none: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no item, got %+v", none)
	}
}

func TestRetryFailedResumesFailedStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	b := testsupport.NewFile(t, store, "/lectures/b.wav", queue.JobOptions{})
	c := testsupport.NewFile(t, store, "/lectures/c.wav", queue.JobOptions{})

	a.Status = queue.StatusSynthesizing
	a.Attempts = 3
	a.SetFailed("tts down")
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	b.SetFailed("no status")
	b.FailedAtStatus = ""
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c.Status = queue.StatusTranscribing
	c.SetFailed("deepgram down")
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := store.RetryFailed(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 items retried, got %d", updated)
	}

	gotA, _ := store.GetByID(ctx, a.ID)
	if gotA.Status != queue.StatusParaphrased || gotA.Attempts != 0 || gotA.ErrorMessage != "" || gotA.FailedAtStatus != "" {
		t.Fatalf("expected A resumed at paraphrased with reset attempts, got %+v", gotA)
	}
	gotB, _ := store.GetByID(ctx, b.ID)
	if gotB.Status != queue.StatusPending {
		t.Fatalf("expected B pending, got %s", gotB.Status)
	}
	gotC, _ := store.GetByID(ctx, c.ID)
	if gotC.Status != queue.StatusFailed {
		t.Fatalf("expected C untouched, got %s", gotC.Status)
	}

	updated, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 item retried, got %d", updated)
	}
	gotC, _ = store.GetByID(ctx, c.ID)
	if gotC.Status != queue.StatusPending {
		t.Fatalf("expected C pending, got %s", gotC.Status)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	testsupport.SetStatus(t, store, item, queue.StatusTranscribing)

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	t.Run("all statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()
		cases := []struct {
			name       string
			processing queue.Status
			expected   queue.Status
		}{
			{"transcribing", queue.StatusTranscribing, queue.StatusPending},
			{"paraphrasing", queue.StatusParaphrasing, queue.StatusTranscribed},
			{"synthesizing", queue.StatusSynthesizing, queue.StatusParaphrased},
			{"publishing", queue.StatusPublishing, queue.StatusSynthesized},
		}
		var ids []int64
		for i, tc := range cases {
			item := testsupport.NewFile(t, store, fmt.Sprintf("/lectures/stale-%d.wav", i), queue.JobOptions{})
			item.Status = tc.processing
			item.LastHeartbeat = &past
			if err := store.Update(ctx, item); err != nil {
				t.Fatalf("Update: %v", err)
			}
			ids = append(ids, item.ID)
		}

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing: %v", err)
		}
		if int(count) != len(cases) {
			t.Fatalf("expected %d items reclaimed, got %d", len(cases), count)
		}

		for idx, tc := range cases {
			updated, err := store.GetByID(ctx, ids[idx])
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if updated.Status != tc.expected {
				t.Fatalf("%s: expected status %s after reclaim, got %s", tc.name, tc.expected, updated.Status)
			}
			if updated.LastHeartbeat != nil {
				t.Fatalf("%s: expected heartbeat cleared, got %v", tc.name, updated.LastHeartbeat)
			}
		}
	})

	t.Run("filtered statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()

		transcribing := testsupport.NewFile(t, store, "/lectures/t.wav", queue.JobOptions{})
		transcribing.Status = queue.StatusTranscribing
		transcribing.LastHeartbeat = &past
		if err := store.Update(ctx, transcribing); err != nil {
			t.Fatalf("Update transcribing: %v", err)
		}

		publishing := testsupport.NewFile(t, store, "/lectures/p.wav", queue.JobOptions{})
		publishing.Status = queue.StatusPublishing
		publishing.LastHeartbeat = &past
		if err := store.Update(ctx, publishing); err != nil {
			t.Fatalf("Update publishing: %v", err)
		}

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), queue.StatusPublishing)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing filtered: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 item reclaimed, got %d", count)
		}

		reclaimed, _ := store.GetByID(ctx, publishing.ID)
		if reclaimed.Status != queue.StatusSynthesized {
			t.Fatalf("expected publishing item rolled back to synthesized, got %s", reclaimed.Status)
		}

		unchanged, _ := store.GetByID(ctx, transcribing.ID)
		if unchanged.Status != queue.StatusTranscribing {
			t.Fatalf("expected transcribing item untouched, got %s", unchanged.Status)
		}
		if unchanged.LastHeartbeat == nil || !unchanged.LastHeartbeat.Equal(past) {
			t.Fatalf("expected transcribing heartbeat unchanged, got %v", unchanged.LastHeartbeat)
		}
	})

	t.Run("fresh heartbeat kept", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		recent := time.Now().UTC()
		item := testsupport.NewFile(t, store, "/lectures/fresh.wav", queue.JobOptions{})
		item.Status = queue.StatusParaphrasing
		item.LastHeartbeat = &recent
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected nothing reclaimed, got %d", count)
		}
	})
}

func TestUpdateProgressPreservesHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	item.Status = queue.StatusTranscribing
	past := time.Now().Add(-5 * time.Minute).UTC()
	item.LastHeartbeat = &past
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID before progress: %v", err)
	}
	if before.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set before progress update")
	}
	origHeartbeat := *before.LastHeartbeat

	before.ProgressStage = "Transcribing"
	before.ProgressPercent = 42.5
	before.ProgressMessage = "Chunk 2 of 3"
	if err := store.UpdateProgress(ctx, before); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID after progress: %v", err)
	}
	if after.LastHeartbeat == nil || !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("expected heartbeat unchanged, before %v after %v", origHeartbeat, after.LastHeartbeat)
	}
	if after.ProgressStage != "Transcribing" || after.ProgressMessage != "Chunk 2 of 3" || after.ProgressPercent != 42.5 {
		t.Fatalf("expected progress fields persisted, got %+v", after)
	}
}

func TestClearVariantsAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewFile(t, store, "/lectures/pending.wav", queue.JobOptions{})
	done := testsupport.NewFile(t, store, "/lectures/done.wav", queue.JobOptions{})
	testsupport.SetStatus(t, store, done, queue.StatusCompleted)
	failed := testsupport.NewFile(t, store, "/lectures/failed.wav", queue.JobOptions{})
	testsupport.SetStatus(t, store, failed, queue.StatusFailed)
	busy := testsupport.NewFile(t, store, "/lectures/busy.wav", queue.JobOptions{})
	testsupport.SetStatus(t, store, busy, queue.StatusParaphrasing)

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 4 || health.Pending != 1 || health.Completed != 1 || health.Failed != 1 || health.Processing != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}

	if n, err := store.ClearCompleted(ctx); err != nil || n != 1 {
		t.Fatalf("ClearCompleted = %d, %v", n, err)
	}
	if n, err := store.ClearFailed(ctx); err != nil || n != 1 {
		t.Fatalf("ClearFailed = %d, %v", n, err)
	}
	removed, err := store.Remove(ctx, busy.ID)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(ctx, busy.ID)
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}
	if n, err := store.Clear(ctx); err != nil || n != 1 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
}

func TestCheckHealthReportsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", health.MissingColumns)
	}
	if health.TotalItems != 1 {
		t.Fatalf("expected 1 item, got %d", health.TotalItems)
	}
	if health.DBPath != filepath.Join(cfg.Paths.LogDir, "queue.db") {
		t.Fatalf("unexpected db path %q", health.DBPath)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.NewFile(t, store, "/lectures/a.wav", queue.JobOptions{})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	items, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected item to survive reopen, got %d", len(items))
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if health.SchemaVersion != "1" {
		t.Fatalf("schema version = %q, want 1", health.SchemaVersion)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.QueueDBPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump user_version: %v", err)
	}
	_ = db.Close()

	if _, err := queue.Open(cfg); !errors.Is(err, queue.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
