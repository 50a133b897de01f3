package textutil

import (
	"strings"
	"unicode/utf8"
)

const (
	minJoinOverlap = 10
	maxJoinOverlap = 100
)

// SmartJoin concatenates transcripts of consecutive, overlapping audio chunks.
// For each next part it looks for the longest overlap (between 11 and 100
// runes) where the tail of the accumulated text and the head of the next part
// contain one another, and splices at that point. Parts without an overlap are
// joined with a single space. Blank parts are skipped.
func SmartJoin(parts []string) string {
	var result []rune
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		current := []rune(part)
		if len(result) == 0 {
			result = current
			continue
		}
		result = spliceOverlap(result, current)
	}
	return string(result)
}

func spliceOverlap(result, current []rune) []rune {
	for n := min(maxJoinOverlap, len(result)); n > minJoinOverlap; n-- {
		tail := string(result[len(result)-n:])
		head := string(current[:min(n, len(current))])

		if idx := strings.Index(head, tail); idx >= 0 {
			pos := utf8.RuneCountInString(head[:idx])
			return append(result, current[n-pos:]...)
		}
		if idx := strings.Index(tail, head); idx >= 0 {
			pos := utf8.RuneCountInString(tail[:idx])
			trimmed := append([]rune(nil), result[:len(result)-n+pos]...)
			return append(trimmed, current...)
		}
	}
	joined := append(result, ' ')
	return append(joined, current...)
}
