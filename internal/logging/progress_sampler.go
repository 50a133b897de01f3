package logging

import (
	"math"
	"strings"
)

const defaultProgressStep = 10

// ProgressSampler decides which progress updates deserve a log line. A line
// is emitted whenever the stage label changes and whenever the percentage
// crosses the next step boundary.
type ProgressSampler struct {
	step      float64
	stage     string
	threshold float64
}

// NewProgressSampler returns a sampler that logs every step percent.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = defaultProgressStep
	}
	return &ProgressSampler{step: step}
}

// ShouldLog reports whether an update at percent for stage should be logged.
// Negative percentages are treated as unknown.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	changed := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage, s.threshold = stage, 0
		changed = true
	}
	if percent < 0 {
		return changed
	}
	percent = min(percent, 100)
	if percent < s.threshold {
		return changed
	}
	s.threshold = (math.Floor(percent/s.step) + 1) * s.step
	return true
}

// Reset forgets the last stage and threshold.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.stage, s.threshold = "", 0
	}
}
