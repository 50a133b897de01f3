package audio

import (
	"testing"
	"time"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name    string
		total   time.Duration
		chunk   time.Duration
		overlap time.Duration
		want    []Span
	}{
		{
			name:    "overlapping spans",
			total:   65 * time.Minute,
			chunk:   30 * time.Minute,
			overlap: 2 * time.Second,
			want: []Span{
				{Index: 0, Start: 0, End: 30 * time.Minute},
				{Index: 1, Start: 30*time.Minute - 2*time.Second, End: 60 * time.Minute},
				{Index: 2, Start: 60*time.Minute - 2*time.Second, End: 65 * time.Minute},
			},
		},
		{
			name:  "exact multiple has no trailing empty span",
			total: 30 * time.Minute,
			chunk: 30 * time.Minute,
			want:  []Span{{Index: 0, Start: 0, End: 30 * time.Minute}},
		},
		{
			name:    "overlap larger than chunk clamps at zero",
			total:   3 * time.Second,
			chunk:   time.Second,
			overlap: 5 * time.Second,
			want: []Span{
				{Index: 0, Start: 0, End: time.Second},
				{Index: 1, Start: 0, End: 2 * time.Second},
				{Index: 2, Start: 0, End: 3 * time.Second},
			},
		},
		{name: "zero total", total: 0, chunk: time.Minute},
		{name: "zero chunk", total: time.Minute, chunk: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanChunks(tt.total, tt.chunk, tt.overlap)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d spans, want %d: %v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("span %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
