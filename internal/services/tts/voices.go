package tts

import (
	"fmt"
	"strings"

	"lectern/internal/language"
	"lectern/internal/services"
)

// Voice maps a friendly key to the engine name the server expects.
type Voice struct {
	Key    string `json:"key"`
	Engine string `json:"engine"`
}

const (
	DefaultVoice  = "czech_male"
	DefaultFormat = "wav"
)

var voices = []Voice{
	{Key: "czech_male", Engine: "Oldrich30"},
	{Key: "czech_female", Engine: "Ilona30"},
	{Key: "english_female", Engine: "Emma30"},
	{Key: "english_male", Engine: "Tim30"},
}

var formats = []string{"wav", "mp3"}

// Voices lists the available voices.
func Voices() []Voice {
	return append([]Voice(nil), voices...)
}

// VoiceKeys lists the voice keys in catalog order.
func VoiceKeys() []string {
	keys := make([]string, 0, len(voices))
	for _, v := range voices {
		keys = append(keys, v.Key)
	}
	return keys
}

// ResolveVoice returns the engine for a voice key. Engine names are accepted
// as-is.
func ResolveVoice(voice string) (string, error) {
	voice = strings.TrimSpace(voice)
	for _, v := range voices {
		if strings.EqualFold(v.Key, voice) || strings.EqualFold(v.Engine, voice) {
			return v.Engine, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "tts", "voice",
		fmt.Sprintf("invalid voice %q; available voices: %s", voice, strings.Join(VoiceKeys(), ", ")), nil)
}

// VoiceForLanguage picks the male voice of the language's family.
func VoiceForLanguage(code string) string {
	return language.VoiceFamily(code) + "_male"
}

// Formats lists the supported output formats.
func Formats() []string {
	return append([]string(nil), formats...)
}

// IsFormat reports whether format is supported.
func IsFormat(format string) bool {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}
