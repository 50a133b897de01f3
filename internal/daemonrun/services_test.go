package daemonrun

import (
	"testing"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func TestPipelineStepsFollowStatusOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	steps := PipelineSteps(BuildStages(cfg, store, logging.NewNop(), nil))
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	prev := queue.StatusPending
	for _, step := range steps {
		if step.Handler == nil {
			t.Fatalf("step %s has no handler", step.StageName)
		}
		if got := queue.RollbackStatus(step.Processing); got != prev {
			t.Fatalf("step %s starts from %s, want %s", step.StageName, got, prev)
		}
		prev = step.Done
	}
	if prev != queue.StatusCompleted {
		t.Fatalf("pipeline ends at %s", prev)
	}
}
