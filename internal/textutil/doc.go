// Package textutil provides the text processing shared by the paraphrasing,
// synthesis, and transcription paths.
//
// The primary use cases are:
//   - Splitting text into sentences and packing them into size-bounded chunks
//     for the chat-completions and TTS backends
//   - Joining transcripts of overlapping audio chunks without repeating the
//     overlapped words
//   - Token fingerprints and cosine similarity for comparing a paraphrase to
//     its transcript
//   - Sanitizing filenames and path segments for safe filesystem use
//
// All lengths are measured in runes so Czech diacritics count as one
// character.
package textutil
