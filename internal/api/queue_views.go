package api

import (
	"path/filepath"
	"sort"
	"time"
)

// SortQueueItemsNewestFirst orders queue items by CreatedAt descending, breaking ties by ID descending.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]QueueItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

func parseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// ParseQueueTime exposes queue timestamp parsing for consumers that need display formatting.
func ParseQueueTime(value string) time.Time {
	return parseQueueTime(value)
}

// Artifact names one produced file of a queue item.
type Artifact struct {
	Label string
	Path  string
}

// Artifacts lists the files an item has produced so far, in pipeline order.
func Artifacts(item QueueItem) []Artifact {
	candidates := []Artifact{
		{Label: "Transcript", Path: item.TranscriptPath},
		{Label: "Paraphrase", Path: item.ParaphrasePath},
		{Label: "Audio", Path: item.AudioPath},
		{Label: "Bundle", Path: item.BundlePath},
	}
	out := make([]Artifact, 0, len(candidates))
	for _, a := range candidates {
		if a.Path != "" {
			out = append(out, a)
		}
	}
	return out
}

// DisplayTitle prefers the stored title and falls back to the file name.
func DisplayTitle(item QueueItem) string {
	if item.Title != "" {
		return item.Title
	}
	if item.SourcePath != "" {
		return filepath.Base(item.SourcePath)
	}
	return "Untitled"
}
