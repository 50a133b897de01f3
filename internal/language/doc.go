// Package language provides the lecture language catalog and code
// normalization.
//
// All language-related conversions (ISO 639-1, ISO 639-2, localized display
// names, TTS voice families) are consolidated here so the transcription,
// paraphrasing, and synthesis paths agree on which languages exist.
package language
