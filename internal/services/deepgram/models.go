package deepgram

import (
	"slices"
	"strings"

	"lectern/internal/language"
)

var models = []string{"nova-2", "whisper-large", "whisper-medium", "whisper-small", "whisper-tiny"}

// Models lists the transcription models offered to users.
func Models() []string {
	return slices.Clone(models)
}

// IsSupportedModel reports whether model is in the offered model list.
func IsSupportedModel(model string) bool {
	return slices.Contains(models, strings.ToLower(strings.TrimSpace(model)))
}

// Languages lists the transcription languages with their display names.
func Languages() []language.Language {
	return language.Supported()
}
