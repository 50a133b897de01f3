package paraphraser

import (
	"fmt"
	"strings"

	"lectern/internal/language"
)

// BuildPrompts returns the system and user prompts for one chunk.
func BuildPrompts(text string, opts Options) (string, string) {
	name := language.DisplayName(opts.Language)
	instruction := StyleInstruction(opts.Style)
	if extra := FormalityInstruction(opts.Formality); extra != "" {
		instruction += " " + extra
	}
	system := fmt.Sprintf("You are an expert paraphrasing assistant. Your task is to paraphrase text in %s while maintaining the original meaning.", name)

	var user strings.Builder
	fmt.Fprintf(&user, "Paraphrase the following text in %s. %s\n", name, instruction)
	user.WriteString("Original text:\n")
	user.WriteString(text)
	user.WriteString("\nParaphrased version:")
	return system, user.String()
}
