package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"lectern/internal/queue"
)

// ErrNoTranscript is returned for items that have not finished transcription.
var ErrNoTranscript = errors.New("no transcript yet")

// QueueReader is the read side of queue.Store.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
}

// QueueService answers queue queries with API DTOs. All methods are safe on a
// nil receiver and return empty results.
type QueueService struct {
	store QueueReader
}

func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Stats returns counts keyed by status name, with every status present.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe returns nil without error when id is unknown.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	item, err := s.lookup(ctx, id)
	if item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// Transcript returns nil without error when id is unknown and ErrNoTranscript
// when the item exists but has nothing to show yet.
func (s *QueueService) Transcript(ctx context.Context, id int64) (*TranscriptResponse, error) {
	item, err := s.lookup(ctx, id)
	if item == nil {
		return nil, err
	}
	return ReadTranscript(FromQueueItem(item))
}

func (s *QueueService) lookup(ctx context.Context, id int64) (*queue.Item, error) {
	if s == nil {
		return nil, nil
	}
	return s.store.GetByID(ctx, id)
}

// ReadTranscript loads the transcript and, when present, the paraphrase
// referenced by item.
func ReadTranscript(item QueueItem) (*TranscriptResponse, error) {
	if strings.TrimSpace(item.TranscriptPath) == "" {
		return nil, fmt.Errorf("item %d: %w (status %s)", item.ID, ErrNoTranscript, item.Status)
	}
	resp := &TranscriptResponse{ID: item.ID, Title: item.Title}
	files := []struct {
		path, what string
		dst        *string
	}{
		{item.TranscriptPath, "transcript", &resp.Transcript},
		{item.ParaphrasePath, "paraphrase", &resp.Paraphrase},
	}
	for _, f := range files {
		if strings.TrimSpace(f.path) == "" {
			continue
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.what, err)
		}
		*f.dst = string(data)
	}
	return resp, nil
}
