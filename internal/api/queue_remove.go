package api

import (
	"context"
	"fmt"
)

// QueueRemoveService deletes queue rows by ID.
type QueueRemoveService interface {
	Remove(ctx context.Context, ids []int64) (int64, error)
}

type RemoveItemOutcome string

const (
	RemoveItemRemoved  RemoveItemOutcome = "removed"
	RemoveItemNotFound RemoveItemOutcome = "not_found"
)

// RemoveItemResult is the per-ID outcome of a remove request.
type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	RemovedCount int64              `json:"removedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// RemoveItemsByID issues one delete per ID so missing rows can be told apart
// from removed ones. The first store error aborts the batch.
func RemoveItemsByID(ctx context.Context, service QueueRemoveService, ids []int64) (RemoveItemsResult, error) {
	var result RemoveItemsResult
	result.Items = make([]RemoveItemResult, len(ids))
	for i, id := range ids {
		n, err := service.Remove(ctx, []int64{id})
		if err != nil {
			return RemoveItemsResult{}, fmt.Errorf("remove item %d: %w", id, err)
		}
		outcome := RemoveItemNotFound
		if n > 0 {
			outcome = RemoveItemRemoved
		}
		result.RemovedCount += n
		result.Items[i] = RemoveItemResult{ID: id, Outcome: outcome}
	}
	return result, nil
}
