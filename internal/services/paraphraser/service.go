package paraphraser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/services/llm"
	"lectern/internal/textutil"
)

const defaultMaxLength = 4000

// Completer is the chat completion call the service depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options select the paraphrase style, formality, language, and chunk size.
type Options struct {
	Style     string `json:"style,omitempty"`
	Formality string `json:"formality,omitempty"`
	Language  string `json:"language,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

// Result is a completed paraphrase.
type Result struct {
	Text    string
	Chunks  int
	Elapsed time.Duration
}

// ProgressFunc receives completion fractions between 0 and 1.
type ProgressFunc func(fraction float64)

// Service paraphrases text through a Completer.
type Service struct {
	client Completer
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(client Completer, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logging.NewComponentLogger(logger, "paraphraser")}
}

// Paraphrase rewrites text. Inputs longer than MaxLength are processed chunk
// by chunk; cancellation is honored between chunks.
func (s *Service) Paraphrase(ctx context.Context, text string, opts Options, progress ProgressFunc) (Result, error) {
	started := time.Now()
	report := func(fraction float64) {
		if progress != nil {
			progress(fraction)
		}
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "paraphrase", "input", "no text to paraphrase", nil)
	}
	if s.client == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "paraphrase", "client", "chat client not configured", nil)
	}
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}
	report(0.1)

	if len([]rune(text)) <= maxLength {
		out, err := s.complete(ctx, text, opts)
		if err != nil {
			return Result{}, err
		}
		report(0.9)
		report(1.0)
		return Result{Text: out, Chunks: 1, Elapsed: time.Since(started)}, nil
	}

	chunks := textutil.ChunkForParaphrase(text, maxLength)
	s.logger.Info("paraphrasing in chunks",
		logging.Int("chunks", len(chunks)),
		logging.Int("max_length", maxLength),
	)
	results := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return Result{}, services.Wrap(services.ErrCanceled, "paraphrase", "chunks", fmt.Sprintf("stopped after %d of %d chunks", i, len(chunks)), err)
		}
		report(0.1 + float64(i)/float64(len(chunks))*0.8)
		out, err := s.complete(ctx, chunk, opts)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		results = append(results, out)
	}
	report(1.0)
	return Result{Text: strings.Join(results, " "), Chunks: len(chunks), Elapsed: time.Since(started)}, nil
}

func (s *Service) complete(ctx context.Context, text string, opts Options) (string, error) {
	system, user := BuildPrompts(text, opts)
	out, err := s.client.Complete(ctx, system, user)
	if err != nil {
		return "", classify(err)
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrCanceled, "paraphrase", "complete", "", err)
	case llm.IsTransient(err):
		return services.Wrap(services.ErrTransient, "paraphrase", "complete", "chat request failed", err)
	case llm.StatusCode(err) == 401 || llm.StatusCode(err) == 403:
		return services.Wrap(services.ErrConfiguration, "paraphrase", "complete", "chat request rejected", err)
	default:
		return services.Wrap(services.ErrExternalTool, "paraphrase", "complete", "chat request failed", err)
	}
}
