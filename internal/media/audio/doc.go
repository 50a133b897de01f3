// Package audio plans and cuts audio spans for chunked transcription and
// stitches synthesized WAV segments back together.
//
// Span planning is pure; exporting a span shells out to ffmpeg through an
// injectable runner. WAV chunks are decoded and re-encoded with go-audio/wav;
// integer PCM round-trips unchanged.
package audio
