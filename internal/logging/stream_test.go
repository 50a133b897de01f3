package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestStreamHandlerCarriesLoggerAttrs(t *testing.T) {
	hub := NewStreamHub(100)
	handler := newStreamHandler(slog.NewTextHandler(discardWriter{}, nil), hub)

	logger := slog.New(handler).
		With(slog.String(FieldLane, "text")).
		With(slog.Int64(FieldItemID, 99)).
		With(slog.String(FieldStage, "original"))
	logger.Info("paraphrase progress", slog.String(FieldStage, "paraphrase"), slog.Int("chunk", 2))

	events, seq := hub.Tail(10)
	if len(events) != 1 || seq != 1 {
		t.Fatalf("expected 1 event at seq 1, got %d at %d", len(events), seq)
	}
	evt := events[0]
	if evt.ItemID != 99 || evt.Lane != "text" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.Stage != "paraphrase" {
		t.Fatalf("call-site stage should win, got %q", evt.Stage)
	}
	if evt.Fields["chunk"] != "2" {
		t.Fatalf("expected chunk field, got %v", evt.Fields)
	}
}

func TestStreamHandlerNilHubReturnsBase(t *testing.T) {
	base := slog.NewTextHandler(discardWriter{}, nil)
	if newStreamHandler(base, nil) != base {
		t.Fatal("expected base handler when hub is nil")
	}
}

func TestStreamHubRingAndFetch(t *testing.T) {
	hub := NewStreamHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(LogEvent{Message: "m"})
	}
	events, next, err := hub.Fetch(context.Background(), 0, 10, false)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 3 || events[0].Sequence != 3 || next != 5 {
		t.Fatalf("unexpected fetch result: %d events, first %d, next %d", len(events), events[0].Sequence, next)
	}
	events, _, _ = hub.Fetch(context.Background(), 4, 10, false)
	if len(events) != 1 || events[0].Sequence != 5 {
		t.Fatalf("expected only seq 5, got %+v", events)
	}
	events, _, _ = hub.Fetch(context.Background(), 5, 10, false)
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
	events, next, _ = hub.Fetch(context.Background(), 0, 2, false)
	if len(events) != 2 || next != 4 {
		t.Fatalf("limited fetch should resume after the last returned event, got %d events next %d", len(events), next)
	}
}

func TestStreamHubFilterAppliesBeforeLimit(t *testing.T) {
	hub := NewStreamHub(10)
	for i := range 6 {
		evt := LogEvent{Message: "noise", Component: "daemon"}
		if i%3 == 2 {
			evt = LogEvent{Message: "item", Component: "Workflow", ItemID: 7}
		}
		hub.Publish(evt)
	}
	filter := LogFilter{ItemID: 7, Component: "workflow"}

	events, next, err := hub.FetchMatching(context.Background(), 0, 1, false, filter)
	if err != nil {
		t.Fatalf("FetchMatching returned error: %v", err)
	}
	if len(events) != 1 || events[0].Sequence != 3 || next != 3 {
		t.Fatalf("expected seq 3 with cursor 3, got %+v next %d", events, next)
	}
	events, next, _ = hub.FetchMatching(context.Background(), next, 5, false, filter)
	if len(events) != 1 || events[0].Sequence != 6 || next != 6 {
		t.Fatalf("expected seq 6, got %+v next %d", events, next)
	}
	events, next, _ = hub.FetchMatching(context.Background(), 0, 5, false, LogFilter{ItemID: 99})
	if len(events) != 0 || next != 6 {
		t.Fatalf("expected cursor to skip unmatched events, got %+v next %d", events, next)
	}

	tail, seq := hub.TailMatching(1, LogFilter{ItemID: 7})
	if len(tail) != 1 || tail[0].Sequence != 6 || seq != 6 {
		t.Fatalf("unexpected filtered tail %+v seq %d", tail, seq)
	}
	tail, _ = hub.TailMatching(5, LogFilter{Component: "daemon"})
	if len(tail) != 4 || tail[0].Sequence != 1 || tail[3].Sequence != 5 {
		t.Fatalf("expected 4 daemon events oldest first, got %+v", tail)
	}
}

func TestStreamHubFetchWaitsForMatch(t *testing.T) {
	hub := NewStreamHub(10)
	go func() {
		time.Sleep(10 * time.Millisecond)
		hub.Publish(LogEvent{Message: "other", ItemID: 1})
		time.Sleep(10 * time.Millisecond)
		hub.Publish(LogEvent{Message: "wanted", ItemID: 2})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, next, err := hub.FetchMatching(ctx, 0, 10, true, LogFilter{ItemID: 2})
	if err != nil {
		t.Fatalf("FetchMatching returned error: %v", err)
	}
	if len(events) != 1 || events[0].Message != "wanted" || next != 2 {
		t.Fatalf("unexpected events %+v next %d", events, next)
	}
}

func TestStreamHubFetchWaits(t *testing.T) {
	hub := NewStreamHub(10)
	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(LogEvent{Message: "late"})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	events, _, err := hub.Fetch(ctx, 0, 10, true)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(events) != 1 || events[0].Message != "late" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestStreamHubFetchCanceled(t *testing.T) {
	hub := NewStreamHub(10)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := hub.Fetch(ctx, 0, 10, true); err == nil {
		t.Fatal("expected context error")
	}
}
