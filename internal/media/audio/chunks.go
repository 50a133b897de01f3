package audio

import (
	"fmt"
	"time"
)

// Span is a half-open time range [Start, End) within a recording.
type Span struct {
	Index int
	Start time.Duration
	End   time.Duration
}

// Length returns the span duration.
func (s Span) Length() time.Duration {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("#%d %s-%s", s.Index, s.Start, s.End)
}

// PlanChunks divides total into spans of at most chunk length. Every span
// after the first starts overlap earlier so that words cut at a boundary
// appear in both neighbours.
func PlanChunks(total, chunk, overlap time.Duration) []Span {
	if total <= 0 || chunk <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	var spans []Span
	for offset := time.Duration(0); offset < total; offset += chunk {
		start := offset
		if offset > 0 {
			start = max(0, offset-overlap)
		}
		spans = append(spans, Span{
			Index: len(spans),
			Start: start,
			End:   min(total, offset+chunk),
		})
	}
	return spans
}
