package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"lectern/internal/services"
)

func TestOutcomeAndClass(t *testing.T) {
	cases := []struct {
		err     error
		outcome string
		class   string
	}{
		{nil, "success", ""},
		{services.Wrap(services.ErrTimeout, "tts", "post", "", nil), "timeout", "timeout"},
		{fmt.Errorf("wrapped: %w", context.Canceled), "canceled", "unknown"},
		{services.Wrap(services.ErrValidation, "tts", "", "", nil), "failure", "validation"},
		{services.Wrap(services.ErrTransient, "stt", "", "", nil), "failure", "transient"},
		{errors.New("plain"), "failure", "unknown"},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err); got != tc.outcome {
			t.Fatalf("Outcome(%v) = %q, want %q", tc.err, got, tc.outcome)
		}
		if got := ErrorClass(tc.err); got != tc.class {
			t.Fatalf("ErrorClass(%v) = %q, want %q", tc.err, got, tc.class)
		}
	}
}

func TestObserveStageCountsFailures(t *testing.T) {
	before := testutil.ToFloat64(stageFailures.WithLabelValues("metrics-test", "transient"))
	ObserveStage("metrics-test", time.Second, services.Wrap(services.ErrTransient, "x", "", "", nil))
	ObserveStage("metrics-test", time.Second, nil)
	after := testutil.ToFloat64(stageFailures.WithLabelValues("metrics-test", "transient"))
	if after-before != 1 {
		t.Fatalf("expected one failure recorded, got %v", after-before)
	}
}

func TestSetQueueDepthResetsMissing(t *testing.T) {
	SetQueueDepth(map[string]int{"pending": 3}, []string{"pending", "failed"})
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("pending")); got != 3 {
		t.Fatalf("pending depth = %v", got)
	}
	if got := testutil.ToFloat64(queueDepth.WithLabelValues("failed")); got != 0 {
		t.Fatalf("failed depth = %v", got)
	}
}
