package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/services"
	"lectern/internal/textutil"
)

const defaultChunkSize = 4000

// Synthesizer produces one audio file from one piece of text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, format, outputPath string) (string, error)
}

// ProgressFunc receives completion fractions between 0 and 1.
type ProgressFunc func(fraction float64)

// Service turns arbitrarily long text into audio files.
type Service struct {
	client  Synthesizer
	logger  *slog.Logger
	tempDir string
}

// NewService wraps a Synthesizer. tempDir holds chunk files while a long text
// is being synthesized; empty means the system temp directory.
func NewService(client Synthesizer, logger *slog.Logger, tempDir string) *Service {
	return &Service{
		client:  client,
		logger:  logging.NewComponentLogger(logger, "tts"),
		tempDir: tempDir,
	}
}

// GenerateSingle writes one audio file for text. Text longer than chunkSize
// is synthesized sentence-aligned chunk by chunk and the chunks are joined.
func (s *Service) GenerateSingle(ctx context.Context, text, voice, format, outputPath string, chunkSize int, progress ProgressFunc) (string, error) {
	report := func(f float64) {
		if progress != nil {
			progress(f)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "generate", "text cannot be empty", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "generate", "output path must be specified", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "tts", "generate", "create output directory", err)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	format = normalizeFormat(format)

	length := utf8.RuneCountInString(text)
	if length <= chunkSize {
		report(0.1)
		path, err := s.client.Synthesize(ctx, text, voice, format, outputPath)
		if err == nil {
			report(1.0)
			s.logger.Info("audio generated", logging.String("path", path))
			return path, nil
		}
		if errors.Is(err, services.ErrCanceled) || errors.Is(err, services.ErrValidation) || ctx.Err() != nil {
			return "", err
		}
		s.logger.Warn("direct synthesis failed; retrying in chunks",
			logging.Error(err),
			logging.String(logging.FieldEventType, "tts_direct_fallback"),
			logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
			logging.String(logging.FieldImpact, "audio is assembled from sentence chunks"),
		)
	} else {
		s.logger.Info("text exceeds direct synthesis limit; using chunks",
			logging.Int("length", length),
			logging.Int("chunk_size", chunkSize),
		)
	}
	return s.generateChunked(ctx, text, voice, format, outputPath, chunkSize, report)
}

func (s *Service) generateChunked(ctx context.Context, text, voice, format, outputPath string, chunkSize int, report ProgressFunc) (string, error) {
	chunks := textutil.ChunkForSynthesis(text, chunkSize)
	if len(chunks) == 0 {
		return "", services.Wrap(services.ErrValidation, "tts", "generate", "text has no speakable sentences", nil)
	}
	workDir, err := os.MkdirTemp(s.tempDir, "lectern-tts-*")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "tts", "generate", "create chunk directory", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			s.logger.Warn("remove tts chunk directory failed",
				logging.String("dir", workDir),
				logging.Error(err),
				logging.String(logging.FieldEventType, "tts_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the directory manually"),
				logging.String(logging.FieldImpact, "temporary audio chunks remain on disk"),
			)
		}
	}()

	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", services.Wrap(services.ErrCanceled, "tts", "generate", fmt.Sprintf("stopped after %d of %d chunks", i, len(chunks)), err)
		}
		target := filepath.Join(workDir, fmt.Sprintf("chunk_%d.%s", i, format))
		path, err := s.client.Synthesize(ctx, chunk, voice, format, target)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		paths = append(paths, path)
		report(0.1 + float64(i+1)/float64(len(chunks))*0.7)
	}

	s.logger.Info("combining audio chunks", logging.Int("chunks", len(paths)))
	if format == "wav" {
		if err := audio.ConcatWAV(paths, outputPath); err != nil {
			return "", err
		}
	} else {
		if err := fileutil.CopyFile(paths[0], outputPath); err != nil {
			return "", services.Wrap(services.ErrConfiguration, "tts", "generate", "write output", err)
		}
		if len(paths) > 1 {
			s.logger.Warn("only the first audio segment was kept",
				logging.String("format", format),
				logging.Int("chunks", len(paths)),
				logging.String(logging.FieldEventType, "tts_combine_unsupported"),
				logging.String(logging.FieldErrorHint, "use format = \"wav\" for long texts"),
				logging.String(logging.FieldImpact, "audio is truncated"),
			)
		}
	}
	report(1.0)
	s.logger.Info("combined audio generated", logging.String("path", outputPath))
	return outputPath, nil
}

// ProcessChunks synthesizes each sentence-aligned chunk of text into its own
// file (chunk_1.fmt, chunk_2.fmt, ...) using the male voice of language.
func (s *Service) ProcessChunks(ctx context.Context, text, language, format, outputDir string, chunkSize int) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "tts", "chunks", "text cannot be empty", nil)
	}
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if outputDir == "" {
		outputDir = s.tempDir
		if outputDir == "" {
			outputDir = os.TempDir()
		}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "chunks", "create output directory", err)
	}
	format = normalizeFormat(format)
	voice := VoiceForLanguage(language)

	chunks := textutil.ChunkForSynthesis(text, chunkSize)
	paths := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		target := filepath.Join(outputDir, fmt.Sprintf("chunk_%d.%s", i+1, format))
		path, err := s.client.Synthesize(ctx, chunk, voice, format, target)
		if err != nil {
			return paths, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return DefaultFormat
	}
	return format
}
