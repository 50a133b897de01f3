package api

import (
	"context"
	"errors"
	"testing"

	"lectern/internal/queue"
)

type queueActionStub struct {
	items   map[int64]*QueueItem
	retried []int64
}

func (s *queueActionStub) Describe(_ context.Context, id int64) (*QueueItem, error) {
	if item, ok := s.items[id]; ok {
		return item, nil
	}
	return nil, nil
}

func (s *queueActionStub) Retry(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	s.retried = append(s.retried, ids[0])
	return 1, nil
}

func TestRetryFailedItemsByID(t *testing.T) {
	stub := &queueActionStub{
		items: map[int64]*QueueItem{
			1: {ID: 1, Status: "failed", FailedAtStatus: "synthesizing"},
			2: {ID: 2, Status: "transcribing"},
		},
	}

	result, err := RetryFailedItemsByID(context.Background(), stub, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("RetryFailedItemsByID: %v", err)
	}
	if result.UpdatedCount != 1 || len(stub.retried) != 1 || stub.retried[0] != 1 {
		t.Fatalf("unexpected retries %+v %v", result, stub.retried)
	}
	want := []RetryItemOutcome{RetryItemUpdated, RetryItemNotFailed, RetryItemNotFound}
	for i, outcome := range want {
		if result.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", i, result.Items[i].Outcome, outcome)
		}
	}
	if result.Items[0].ResumeFrom != string(queue.StatusParaphrased) {
		t.Fatalf("resume status = %q, want paraphrased", result.Items[0].ResumeFrom)
	}
}

func TestResumeStatus(t *testing.T) {
	tests := []struct {
		failedAt string
		want     queue.Status
	}{
		{"transcribing", queue.StatusPending},
		{"paraphrasing", queue.StatusTranscribed},
		{"publishing", queue.StatusSynthesized},
		{"", queue.StatusPending},
	}
	for _, tt := range tests {
		if got := ResumeStatus(&QueueItem{FailedAtStatus: tt.failedAt}); got != tt.want {
			t.Fatalf("ResumeStatus(%q) = %q, want %q", tt.failedAt, got, tt.want)
		}
	}
}
