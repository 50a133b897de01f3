package recording

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"lectern/internal/textutil"
)

// Capture sources.
const (
	SourceNone   = "none"
	SourceWebcam = "webcam"
	SourceScreen = "screen"
)

var heights = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
}

// Sources lists the capture sources.
func Sources() []string {
	return []string{SourceNone, SourceWebcam, SourceScreen}
}

// Qualities lists the video qualities, best first.
func Qualities() []string {
	return []string{"1080p", "720p", "480p"}
}

// IsSource reports whether s names a capture source.
func IsSource(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SourceNone, SourceWebcam, SourceScreen:
		return true
	}
	return false
}

// IsQuality reports whether q names a supported quality.
func IsQuality(q string) bool {
	_, ok := heights[strings.ToLower(strings.TrimSpace(q))]
	return ok
}

// Session is one planned capture.
type Session struct {
	Title       string
	Author      string
	Source      string
	Quality     string
	OutputDir   string
	VideoDevice string
	AudioDevice string
	Display     string
}

// Validate checks the source and quality.
func (s Session) Validate() error {
	if !IsSource(s.Source) {
		return fmt.Errorf("unknown source %q (choose from %s)", s.Source, strings.Join(Sources(), ", "))
	}
	if s.hasVideo() && !IsQuality(s.Quality) {
		return fmt.Errorf("unknown quality %q (choose from %s)", s.Quality, strings.Join(Qualities(), ", "))
	}
	if strings.TrimSpace(s.OutputDir) == "" {
		return fmt.Errorf("output directory required")
	}
	return nil
}

// FileName returns "{title}_{YYYYmmdd_HHMMSS}.mp4" for a capture started at.
func (s Session) FileName(at time.Time) string {
	title := textutil.SanitizeFileName(s.Title)
	if title == "" {
		title = "lecture"
	}
	return fmt.Sprintf("%s_%s.mp4", title, at.Format("20060102_150405"))
}

// OutputPath joins OutputDir and FileName.
func (s Session) OutputPath(at time.Time) string {
	return filepath.Join(s.OutputDir, s.FileName(at))
}

func (s Session) hasVideo() bool {
	source := strings.ToLower(strings.TrimSpace(s.Source))
	return source == SourceWebcam || source == SourceScreen
}

// Args builds the ffmpeg arguments that record s into output.
func (s Session) Args(output string) []string {
	audioDevice := valueOr(s.AudioDevice, "default")
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	switch strings.ToLower(strings.TrimSpace(s.Source)) {
	case SourceWebcam:
		args = append(args, "-f", "v4l2", "-framerate", "30", "-i", valueOr(s.VideoDevice, "/dev/video0"))
	case SourceScreen:
		args = append(args, "-f", "x11grab", "-framerate", "30", "-i", valueOr(s.Display, ":0.0"))
	}
	args = append(args, "-f", "pulse", "-i", audioDevice)

	if s.hasVideo() {
		height := heights[strings.ToLower(strings.TrimSpace(s.Quality))]
		args = append(args,
			"-map", "0:v", "-map", "1:a",
			"-vf", fmt.Sprintf("scale=-2:%d", height),
			"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p",
		)
	} else {
		args = append(args, "-vn")
	}
	args = append(args, "-c:a", "aac", "-b:a", "128k")
	if title := strings.TrimSpace(s.Title); title != "" {
		args = append(args, "-metadata", "title="+textutil.TitleCase(title))
	}
	if author := strings.TrimSpace(s.Author); author != "" {
		args = append(args, "-metadata", "artist="+author)
	}
	return append(args, "-movflags", "+faststart", output)
}

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
