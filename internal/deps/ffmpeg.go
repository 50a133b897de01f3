package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MediaRequirements lists the ffmpeg tools used for chunking, duration probes,
// and recording.
func MediaRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Cuts recordings into chunks and captures lectures"},
		{Name: "FFprobe", Command: ffprobe, Description: "Measures recording duration"},
	}
}

// EncoderLister runs `ffmpeg -encoders` and returns its stdout.
type EncoderLister func(ctx context.Context, ffmpeg string) ([]byte, error)

func listEncoders(ctx context.Context, ffmpeg string) ([]byte, error) {
	return exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").Output() //nolint:gosec
}

// CheckEncoder reports whether ffmpeg was built with the named encoder.
func CheckEncoder(ctx context.Context, ffmpeg, encoder string) Status {
	return checkEncoder(ctx, ffmpeg, encoder, listEncoders)
}

func checkEncoder(ctx context.Context, ffmpeg, encoder string, list EncoderLister) Status {
	result := Status{
		Name:        "FFmpeg " + encoder,
		Command:     ffmpeg,
		Description: fmt.Sprintf("Encoder %s used for chunk export", encoder),
	}
	if _, err := exec.LookPath(ffmpeg); err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", ffmpeg)
		return result
	}
	out, err := list(ctx, ffmpeg)
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders: %v", err)
		return result
	}
	if hasEncoder(out, encoder) {
		result.Available = true
		return result
	}
	result.Detail = fmt.Sprintf("ffmpeg lacks the %s encoder", encoder)
	return result
}

// hasEncoder scans `ffmpeg -encoders` output, whose rows look like
// " A..... libmp3lame           libmp3lame MP3 (MPEG audio layer 3)".
func hasEncoder(listing []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == encoder {
			return true
		}
	}
	return false
}
