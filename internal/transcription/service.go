package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/media/ffprobe"
	"lectern/internal/services"
	"lectern/internal/services/deepgram"
	"lectern/internal/textutil"
)

// FileTranscriber is the Deepgram call the service depends on.
type FileTranscriber interface {
	TranscribeFile(ctx context.Context, path string, opts deepgram.Options) (deepgram.Transcript, error)
}

// SpanExporter cuts one span of a recording into its own file.
type SpanExporter interface {
	ExportSpan(ctx context.Context, src, dst string, span audio.Span) error
}

// Prober returns the play time of a recording.
type Prober func(ctx context.Context, path string) (time.Duration, error)

// Config holds the chunking policy.
type Config struct {
	SizeThreshold int64
	ChunkDuration time.Duration
	Overlap       time.Duration
	Concurrency   int
	TempDir       string
}

// Request selects transcription options for one file.
type Request struct {
	Options       deepgram.Options
	ForceChunking bool
}

// Result is a finished transcription.
type Result struct {
	Text       string
	Chunks     int
	Elapsed    time.Duration
	Duration   time.Duration
	Confidence float64
	Utterances []deepgram.Utterance
}

// ProgressFunc receives completion fractions between 0 and 1. Calls are
// serialized.
type ProgressFunc func(fraction float64)

// Service transcribes files, chunking long recordings.
type Service struct {
	client   FileTranscriber
	exporter SpanExporter
	probe    Prober
	cfg      Config
	logger   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithExporter replaces the ffmpeg span exporter.
func WithExporter(exporter SpanExporter) Option {
	return func(s *Service) {
		if exporter != nil {
			s.exporter = exporter
		}
	}
}

// WithProber replaces the ffprobe duration probe.
func WithProber(probe Prober) Option {
	return func(s *Service) {
		if probe != nil {
			s.probe = probe
		}
	}
}

// FFprobeProber probes durations with the given ffprobe binary.
func FFprobeProber(binary string) Prober {
	return func(ctx context.Context, path string) (time.Duration, error) {
		result, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return 0, err
		}
		if result.Duration() <= 0 {
			return 0, errors.New("ffprobe reported no duration")
		}
		return result.Duration(), nil
	}
}

// NewService constructs a Service. Without options it uses the system ffmpeg
// and ffprobe.
func NewService(client FileTranscriber, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	s := &Service{
		client:   client,
		exporter: audio.Exporter{},
		probe:    FFprobeProber(""),
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "transcription"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transcribe converts the recording at path to text.
func (s *Service) Transcribe(ctx context.Context, path string, req Request, progress ProgressFunc) (Result, error) {
	started := time.Now()
	var mu sync.Mutex
	report := func(f float64) {
		if progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		progress(f)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, "transcription", "stat", "file not found: "+path, err)
		}
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "stat", path, err)
	}
	if s.client == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "client", "speech-to-text client not configured", nil)
	}

	shouldChunk := req.ForceChunking || (s.cfg.SizeThreshold > 0 && info.Size() > s.cfg.SizeThreshold)
	var duration time.Duration
	if shouldChunk {
		report(0.05)
		duration, err = s.probe(ctx, path)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return Result{}, services.Wrap(services.ErrCanceled, "transcription", "probe", "", ctx.Err())
			}
			s.logger.Warn("duration probe failed; keeping size-based chunking decision",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "duration_probe_failed"),
				logging.String(logging.FieldErrorHint, "check that ffprobe is installed and the file is a valid recording"),
				logging.String(logging.FieldImpact, "chunks are cut until the recording runs out"),
			)
		case duration < s.cfg.ChunkDuration && !req.ForceChunking:
			s.logger.Info("recording shorter than chunk duration; sending whole file",
				logging.Duration("duration", duration),
				logging.Int64("size_bytes", info.Size()),
			)
			shouldChunk = false
		}
	}

	var result Result
	switch {
	case shouldChunk && duration <= 0:
		result, err = s.transcribeUntilExhausted(ctx, path, req, report)
	case shouldChunk:
		result, err = s.transcribeChunked(ctx, path, duration, req, report)
	default:
		result, err = s.transcribeSingle(ctx, path, req, report)
	}
	if err != nil {
		return Result{}, err
	}
	if result.Duration == 0 {
		result.Duration = duration
	}
	result.Elapsed = time.Since(started)
	return result, nil
}

func (s *Service) transcribeSingle(ctx context.Context, path string, req Request, report ProgressFunc) (Result, error) {
	report(0.1)
	transcript, err := s.client.TranscribeFile(ctx, path, req.Options)
	if err != nil {
		return Result{}, err
	}
	report(1.0)
	return Result{
		Text:       textutil.NormalizeText(transcript.Text),
		Chunks:     1,
		Duration:   transcript.Duration,
		Confidence: transcript.Confidence,
		Utterances: transcript.Utterances,
	}, nil
}

func (s *Service) transcribeChunked(ctx context.Context, path string, duration time.Duration, req Request, report ProgressFunc) (Result, error) {
	chunkDuration := s.cfg.ChunkDuration
	if chunkDuration <= 0 {
		chunkDuration = duration
	}
	spans := audio.PlanChunks(duration, chunkDuration, s.cfg.Overlap)
	if len(spans) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "plan", "recording has no audio to transcribe", nil)
	}
	workDir, err := os.MkdirTemp(s.cfg.TempDir, "lectern-stt-*")
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "workdir", "create chunk directory", err)
	}
	defer os.RemoveAll(workDir)

	s.logger.Info("transcribing in chunks",
		logging.Int("chunks", len(spans)),
		logging.Duration("duration", duration),
		logging.Duration("chunk_duration", chunkDuration),
		logging.Int("concurrency", s.cfg.Concurrency),
	)

	texts := make([]string, len(spans))
	confidences := make([]float64, len(spans))
	var (
		mu        sync.Mutex
		completed int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)
	for _, span := range spans {
		group.Go(func() error {
			chunkPath := filepath.Join(workDir, fmt.Sprintf("chunk_%d.mp3", span.Index))
			if err := s.exporter.ExportSpan(groupCtx, path, chunkPath, span); err != nil {
				return services.Wrap(services.ErrExternalTool, "transcription", "export", fmt.Sprintf("chunk %d", span.Index+1), err)
			}
			defer os.Remove(chunkPath)

			transcript, err := s.client.TranscribeFile(groupCtx, chunkPath, req.Options)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", span.Index+1, len(spans), err)
			}
			texts[span.Index] = textutil.NormalizeText(transcript.Text)
			confidences[span.Index] = transcript.Confidence

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			report(float64(done) / float64(len(spans)) * 0.9)
			s.logger.Debug("chunk transcribed",
				logging.Int("chunk", span.Index+1),
				logging.Int("chunks", len(spans)),
				logging.Duration("start", span.Start),
				logging.Duration("end", span.End),
			)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrCanceled, "transcription", "chunks", "", ctx.Err())
		}
		return Result{}, err
	}

	text := textutil.SmartJoin(texts)
	report(1.0)
	return Result{
		Text:       text,
		Chunks:     len(spans),
		Duration:   duration,
		Confidence: mean(confidences),
	}, nil
}

// emptyChunkBytes is the size below which an exported span is treated as
// past the end of the recording. ffmpeg still writes container headers for a
// seek beyond the last frame.
const emptyChunkBytes = 1024

// maxOpenEndedChunks bounds chunking when the recording length is unknown.
const maxOpenEndedChunks = 256

// transcribeUntilExhausted chunks a recording whose duration could not be
// probed. Spans are exported one at a time until ffmpeg produces an empty
// file.
func (s *Service) transcribeUntilExhausted(ctx context.Context, path string, req Request, report ProgressFunc) (Result, error) {
	chunkDuration := s.cfg.ChunkDuration
	if chunkDuration <= 0 {
		s.logger.Warn("chunk duration not configured; sending whole file",
			logging.String(logging.FieldEventType, "chunking_skipped"),
		)
		return s.transcribeSingle(ctx, path, req, report)
	}
	overlap := max(0, s.cfg.Overlap)
	workDir, err := os.MkdirTemp(s.cfg.TempDir, "lectern-stt-*")
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "transcription", "workdir", "create chunk directory", err)
	}
	defer os.RemoveAll(workDir)

	s.logger.Info("transcribing in chunks of unknown count",
		logging.Duration("chunk_duration", chunkDuration),
	)

	var (
		texts       []string
		confidences []float64
		covered     time.Duration
	)
	for index := range maxOpenEndedChunks {
		if err := ctx.Err(); err != nil {
			return Result{}, services.Wrap(services.ErrCanceled, "transcription", "chunks", "", err)
		}
		offset := time.Duration(index) * chunkDuration
		span := audio.Span{Index: index, Start: offset, End: offset + chunkDuration}
		if index > 0 {
			span.Start = max(0, offset-overlap)
		}
		chunkPath := filepath.Join(workDir, fmt.Sprintf("chunk_%d.mp3", index))
		if err := s.exporter.ExportSpan(ctx, path, chunkPath, span); err != nil {
			return Result{}, services.Wrap(services.ErrExternalTool, "transcription", "export", fmt.Sprintf("chunk %d", index+1), err)
		}
		info, err := os.Stat(chunkPath)
		if err != nil || info.Size() < emptyChunkBytes {
			os.Remove(chunkPath)
			break
		}
		transcript, err := s.client.TranscribeFile(ctx, chunkPath, req.Options)
		os.Remove(chunkPath)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d: %w", index+1, err)
		}
		texts = append(texts, textutil.NormalizeText(transcript.Text))
		confidences = append(confidences, transcript.Confidence)
		covered = span.Start + transcript.Duration
		// Progress approaches 0.9 without knowing the total.
		report(0.9 - 0.8/float64(index+2))
		s.logger.Debug("chunk transcribed",
			logging.Int("chunk", index+1),
			logging.Duration("start", span.Start),
			logging.Duration("end", span.End),
		)
	}
	if len(texts) == 0 {
		return Result{}, services.Wrap(services.ErrValidation, "transcription", "plan", "recording has no audio to transcribe", nil)
	}

	report(1.0)
	return Result{
		Text:       textutil.SmartJoin(texts),
		Chunks:     len(texts),
		Duration:   covered,
		Confidence: mean(confidences),
	}, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
