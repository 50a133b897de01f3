package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultFFmpeg is used when no ffmpeg path is configured.
const DefaultFFmpeg = "ffmpeg"

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// RunCommand runs name with args and folds combined output into the error.
func RunCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Exporter cuts spans out of a recording with ffmpeg.
type Exporter struct {
	Binary string
	Run    CommandRunner
}

// ExportSpan writes span of src to dst as MP3 using the system ffmpeg.
func ExportSpan(ctx context.Context, ffmpeg, src, dst string, span Span) error {
	return Exporter{Binary: ffmpeg}.ExportSpan(ctx, src, dst, span)
}

// ExportSpan writes span of src to dst as MP3.
func (e Exporter) ExportSpan(ctx context.Context, src, dst string, span Span) error {
	if span.Length() <= 0 {
		return fmt.Errorf("export span %s: empty span", span)
	}
	binary := strings.TrimSpace(e.Binary)
	if binary == "" {
		binary = DefaultFFmpeg
	}
	run := e.Run
	if run == nil {
		run = RunCommand
	}
	if err := run(ctx, binary, ExportArgs(src, dst, span)...); err != nil {
		return fmt.Errorf("export span %s: %w", span, err)
	}
	return nil
}

// ExportArgs builds the ffmpeg arguments for a span export. Seeking happens
// before the input for speed; video is dropped.
func ExportArgs(src, dst string, span Span) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", seconds(span.Start),
		"-t", seconds(span.Length()),
		"-i", src,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dst,
	}
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
