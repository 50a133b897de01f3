package paraphraser

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a job is already running.
var ErrBusy = errors.New("a paraphrasing job is already in progress")

// Runner allows one paraphrase job at a time and lets callers cancel it.
type Runner struct {
	service *Service

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRunner wraps a Service with a single-job guard.
func NewRunner(service *Service) *Runner {
	return &Runner{service: service}
}

// Run paraphrases text, rejecting the call with ErrBusy when another job is
// active.
func (r *Runner) Run(ctx context.Context, text string, opts Options, progress ProgressFunc) (Result, error) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return Result{}, ErrBusy
	}
	jobCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
	}()
	return r.service.Paraphrase(jobCtx, text, opts, progress)
}

// Running reports whether a job is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Cancel stops the active job, if any. It reports whether a job was running.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	return true
}
