package paraphraser

import "strings"

// Style is a paraphrasing style with its localized display name.
type Style struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

const DefaultStyle = "standard"

var styles = []struct {
	Style
	instruction string
}{
	{Style{"standard", "Standardní"}, "Maintain a balanced tone and similar complexity to the original."},
	{Style{"formal", "Formální"}, "Use formal language and academic tone."},
	{Style{"simple", "Zjednodušený"}, "Simplify the language and make it easier to understand."},
	{Style{"creative", "Kreativní"}, "Use more creative and expressive language."},
	{Style{"academic", "Akademický"}, "Use academic terminology and formal structure."},
}

// Styles lists the available styles in display order.
func Styles() []Style {
	out := make([]Style, 0, len(styles))
	for _, s := range styles {
		out = append(out, s.Style)
	}
	return out
}

// IsStyle reports whether code names a known style.
func IsStyle(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, s := range styles {
		if s.Code == code {
			return true
		}
	}
	return false
}

// StyleInstruction returns the prompt instruction for a style. Unknown styles
// use the standard instruction.
func StyleInstruction(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, s := range styles {
		if s.Code == code {
			return s.instruction
		}
	}
	return styles[0].instruction
}

const DefaultFormality = "neutral"

var formalities = map[string]string{
	"informal": "Prefer a relaxed, conversational register.",
	"neutral":  "",
	"formal":   "Keep a formal register throughout.",
}

// Formalities lists the accepted formality levels.
func Formalities() []string {
	return []string{"informal", "neutral", "formal"}
}

// IsFormality reports whether level is an accepted formality level.
func IsFormality(level string) bool {
	_, ok := formalities[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

// FormalityInstruction returns the extra prompt sentence for level; neutral
// and unknown levels add nothing.
func FormalityInstruction(level string) string {
	return formalities[strings.ToLower(strings.TrimSpace(level))]
}
