package daemon

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"lectern/internal/language"
	"lectern/internal/queue"
	"lectern/internal/services/deepgram"
	"lectern/internal/services/paraphraser"
	"lectern/internal/services/tts"
)

// mediaExtensions lists the recordings the pipeline accepts. Video containers
// are accepted because Deepgram extracts the audio track itself.
var mediaExtensions = []string{
	".wav", ".mp3", ".m4a", ".flac", ".ogg", ".opus", ".aac",
	".mp4", ".mkv", ".mov", ".webm", ".avi",
}

// IsMediaFile reports whether path has a supported recording extension.
func IsMediaFile(path string) bool {
	return slices.Contains(mediaExtensions, strings.ToLower(filepath.Ext(path)))
}

// MediaExtensions returns the supported recording extensions.
func MediaExtensions() []string {
	return slices.Clone(mediaExtensions)
}

// JobOverrides adjusts the configured job defaults for a single submission.
// Empty strings and nil pointers keep the default.
type JobOverrides struct {
	Model              string `json:"model,omitempty"`
	Language           string `json:"language,omitempty"`
	ForceChunking      bool   `json:"force_chunking,omitempty"`
	Paraphrase         *bool  `json:"paraphrase,omitempty"`
	Style              string `json:"style,omitempty"`
	Formality          string `json:"formality,omitempty"`
	ParaphraseLanguage string `json:"paraphrase_language,omitempty"`
	TTS                *bool  `json:"tts,omitempty"`
	Voice              string `json:"voice,omitempty"`
	Format             string `json:"format,omitempty"`
	OutputDir          string `json:"output_dir,omitempty"`
	FilePrefix         string `json:"file_prefix,omitempty"`
}

// Apply returns opts with the overrides applied, or an error naming every
// invalid choice.
func (o JobOverrides) Apply(opts queue.JobOptions) (queue.JobOptions, error) {
	var errs []error
	if model := strings.TrimSpace(o.Model); model != "" {
		if !deepgram.IsSupportedModel(model) {
			errs = append(errs, fmt.Errorf("model %q is not supported (choose from %s)", model, strings.Join(deepgram.Models(), ", ")))
		}
		opts.Transcription.Model = model
	}
	if lang := strings.TrimSpace(o.Language); lang != "" {
		normalized, ok := language.Normalize(lang)
		if !ok {
			errs = append(errs, fmt.Errorf("language %q is not supported", lang))
		}
		opts.Transcription.Language = normalized
		if strings.TrimSpace(o.ParaphraseLanguage) == "" {
			opts.Paraphrase.Language = normalized
		}
	}
	if o.ForceChunking {
		opts.Transcription.ForceChunking = true
	}
	if o.Paraphrase != nil {
		opts.Paraphrase.Enabled = *o.Paraphrase
	}
	if style := strings.TrimSpace(o.Style); style != "" {
		if !paraphraser.IsStyle(style) {
			errs = append(errs, fmt.Errorf("style %q is not supported", style))
		}
		opts.Paraphrase.Style = style
	}
	if formality := strings.TrimSpace(o.Formality); formality != "" {
		if !paraphraser.IsFormality(formality) {
			errs = append(errs, fmt.Errorf("formality %q is not supported (choose from %s)", formality, strings.Join(paraphraser.Formalities(), ", ")))
		}
		opts.Paraphrase.Formality = formality
	}
	if lang := strings.TrimSpace(o.ParaphraseLanguage); lang != "" {
		normalized, ok := language.Normalize(lang)
		if !ok {
			errs = append(errs, fmt.Errorf("paraphrase language %q is not supported", lang))
		}
		opts.Paraphrase.Language = normalized
	}
	if o.TTS != nil {
		opts.TTS.Enabled = *o.TTS
	}
	if voice := strings.TrimSpace(o.Voice); voice != "" {
		if _, err := tts.ResolveVoice(voice); err != nil {
			errs = append(errs, err)
		}
		opts.TTS.Voice = voice
	}
	if format := strings.TrimSpace(o.Format); format != "" {
		if !tts.IsFormat(format) {
			errs = append(errs, fmt.Errorf("format %q is not supported (wav, mp3)", format))
		}
		opts.TTS.Format = strings.ToLower(format)
	}
	if opts.TTS.Enabled && !opts.Paraphrase.Enabled {
		errs = append(errs, errors.New("speech synthesis requires paraphrasing to be enabled"))
	}
	if dir := strings.TrimSpace(o.OutputDir); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve output dir: %w", err))
		}
		opts.Publish.OutputDir = abs
	}
	if prefix := strings.TrimSpace(o.FilePrefix); prefix != "" {
		opts.Publish.FilePrefix = prefix
	}
	return opts, errors.Join(errs...)
}
