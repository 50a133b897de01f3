// Package ffprobe runs ffprobe against lecture recordings and exposes the
// container duration, size, and stream layout needed to plan chunked
// transcription.
package ffprobe
