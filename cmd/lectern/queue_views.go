package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"lectern/internal/api"
)

const displayTimeLayout = "2006-01-02 15:04"

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key, count := range stats {
		if count == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), strconv.Itoa(stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	sorted := api.SortQueueItemsNewestFirst(items)
	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			api.DisplayTitle(item),
			formatStatusLabel(item.Status),
			formatProgress(item),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func formatProgress(item api.QueueItem) string {
	if strings.TrimSpace(item.ErrorMessage) != "" && item.Status == "failed" {
		return truncate(item.ErrorMessage, 48)
	}
	stage := strings.TrimSpace(item.Progress.Stage)
	if stage == "" {
		return "-"
	}
	if item.Progress.Percent <= 0 {
		return stage
	}
	return fmt.Sprintf("%s %.0f%%", stage, item.Progress.Percent)
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	t := api.ParseQueueTime(strings.TrimSpace(value))
	if t.IsZero() {
		return strings.TrimSpace(value)
	}
	return t.Local().Format(displayTimeLayout)
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid queue item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// itemDetailLines renders a queue item as "Label: value" lines.
func itemDetailLines(item api.QueueItem) []string {
	lines := []string{
		fmt.Sprintf("ID:          %d", item.ID),
		fmt.Sprintf("Title:       %s", api.DisplayTitle(item)),
		fmt.Sprintf("Source:      %s", item.SourcePath),
		fmt.Sprintf("Status:      %s", formatStatusLabel(item.Status)),
		fmt.Sprintf("Progress:    %s", formatProgress(item)),
		fmt.Sprintf("Attempts:    %d", item.Attempts),
		fmt.Sprintf("Created:     %s", formatDisplayTime(item.CreatedAt)),
		fmt.Sprintf("Updated:     %s", formatDisplayTime(item.UpdatedAt)),
	}
	if msg := strings.TrimSpace(item.Progress.Message); msg != "" {
		lines = append(lines, fmt.Sprintf("Message:     %s", msg))
	}
	if item.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error:       %s", item.ErrorMessage))
		if item.FailedAtStatus != "" {
			lines = append(lines, fmt.Sprintf("Failed at:   %s", formatStatusLabel(item.FailedAtStatus)))
		}
	}

	opts := item.Options
	lines = append(lines, fmt.Sprintf("Model:       %s (%s)", opts.Transcription.Model, opts.Transcription.Language))
	if opts.Paraphrase.Enabled {
		lines = append(lines, fmt.Sprintf("Paraphrase:  %s, %s", opts.Paraphrase.Style, opts.Paraphrase.Formality))
	} else {
		lines = append(lines, "Paraphrase:  off")
	}
	if opts.TTS.Enabled {
		lines = append(lines, fmt.Sprintf("Speech:      %s (%s)", opts.TTS.Voice, opts.TTS.Format))
	} else {
		lines = append(lines, "Speech:      off")
	}
	if item.OutputDir != "" {
		lines = append(lines, fmt.Sprintf("Output:      %s", item.OutputDir))
	}
	for _, artifact := range api.Artifacts(item) {
		lines = append(lines, fmt.Sprintf("%-12s %s", artifact.Label+":", artifact.Path))
	}
	if item.ItemLogPath != "" {
		lines = append(lines, fmt.Sprintf("Log:         %s", item.ItemLogPath))
	}
	return lines
}
