package queue

import "lectern/internal/services"

// FailureStatus maps a stage error to the queue status the workflow manager
// persists after the stage fails. Retryable failures send the item back to
// the start of its stage until maxAttempts is reached; everything else fails
// the item. The returned bool reports whether a retry was scheduled.
func FailureStatus(item *Item, err error, maxAttempts int) (Status, bool) {
	if item == nil {
		return StatusFailed, false
	}
	if services.IsRetryable(err) && item.Attempts+1 < maxAttempts {
		return RollbackStatus(item.Status), true
	}
	return StatusFailed, false
}
