package workflow

import (
	"context"
	"log/slog"
	"slices"

	"lectern/internal/queue"
	"lectern/internal/stage"
)

// Stage names used in logs, metrics and status output.
const (
	StageTranscription = "transcription"
	StageParaphrase    = "paraphrase"
	StageSynthesis     = "synthesis"
	StagePublishing    = "publishing"
)

// StageSet holds the handlers for each pipeline stage. A nil handler leaves
// its stage out of the workflow.
type StageSet struct {
	Transcription stage.Handler
	Paraphrase    stage.Handler
	Synthesis     stage.Handler
	Publishing    stage.Handler
}

// StageHandler is the part of stage.Handler the runner drives.
type StageHandler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
}

// step picks up items in status from, holds them in working while the
// handler runs and leaves them in to on success.
type step struct {
	name    string
	handler stage.Handler
	from    queue.Status
	working queue.Status
	to      queue.Status
}

// lane is one polling loop over a run of consecutive steps.
type lane struct {
	kind   queue.ProcessingLane
	steps  []step
	logger *slog.Logger
}

func (l *lane) name() string { return string(l.kind) }

// claimable lists the statuses the lane pulls from the queue, in stage order.
func (l *lane) claimable() []queue.Status {
	out := make([]queue.Status, 0, len(l.steps))
	for _, s := range l.steps {
		out = append(out, s.from)
	}
	return out
}

// inFlight lists the processing statuses whose stale heartbeats the lane
// reclaims.
func (l *lane) inFlight() []queue.Status {
	var out []queue.Status
	for _, s := range l.steps {
		if s.working != "" && !slices.Contains(out, s.working) {
			out = append(out, s.working)
		}
	}
	return out
}

func (l *lane) stepFor(status queue.Status) (step, bool) {
	i := slices.IndexFunc(l.steps, func(s step) bool { return s.from == status })
	if i < 0 {
		return step{}, false
	}
	return l.steps[i], true
}

// ConfigureStages replaces the manager's lanes. Transcription runs alone so a
// long upload never blocks text work; paraphrase, synthesis and publishing
// share the text lane in that order.
func (m *Manager) ConfigureStages(set StageSet) {
	plan := []struct {
		kind queue.ProcessingLane
		step step
	}{
		{queue.LaneTranscription, step{StageTranscription, set.Transcription, queue.StatusPending, queue.StatusTranscribing, queue.StatusTranscribed}},
		{queue.LaneText, step{StageParaphrase, set.Paraphrase, queue.StatusTranscribed, queue.StatusParaphrasing, queue.StatusParaphrased}},
		{queue.LaneText, step{StageSynthesis, set.Synthesis, queue.StatusParaphrased, queue.StatusSynthesizing, queue.StatusSynthesized}},
		{queue.LaneText, step{StagePublishing, set.Publishing, queue.StatusSynthesized, queue.StatusPublishing, queue.StatusCompleted}},
	}

	var lanes []*lane
	for _, p := range plan {
		if p.step.handler == nil {
			continue
		}
		i := slices.IndexFunc(lanes, func(l *lane) bool { return l.kind == p.kind })
		if i < 0 {
			lanes = append(lanes, &lane{kind: p.kind})
			i = len(lanes) - 1
		}
		lanes[i].steps = append(lanes[i].steps, p.step)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.mu.Unlock()
}
