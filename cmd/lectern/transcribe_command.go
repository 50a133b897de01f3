package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/daemonrun"
	"lectern/internal/services/deepgram"
	"lectern/internal/transcription"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		model         string
		lang          string
		forceChunking bool
		output        string
		utterances    bool
	)
	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe a recording in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(false, false); err != nil {
				return err
			}
			opts := deepgram.Options{
				Model:       firstNonEmpty(model, cfg.Deepgram.Model),
				Language:    firstNonEmpty(lang, cfg.Deepgram.Language),
				SmartFormat: cfg.Deepgram.SmartFormat,
				Punctuate:   cfg.Deepgram.Punctuate,
				Diarize:     cfg.Deepgram.Diarize,
				Utterances:  cfg.Deepgram.Utterances || utterances,
			}
			if !deepgram.IsSupportedModel(opts.Model) {
				return fmt.Errorf("unknown model %q (choose from %s)", opts.Model, strings.Join(deepgram.Models(), ", "))
			}

			logger := ctx.foregroundLogger(cmd, cfg)
			svc := daemonrun.NewTranscriptionService(cfg, logger)
			progress := newProgressPrinter(cmd, "Transcribing")
			result, err := svc.Transcribe(cmd.Context(), args[0], transcription.Request{
				Options:       opts,
				ForceChunking: forceChunking,
			}, progress.Report)
			progress.Done()
			if err != nil {
				return err
			}
			if strings.TrimSpace(result.Text) == "" {
				return fmt.Errorf("no speech detected in %s", args[0])
			}

			text := result.Text
			if utterances && len(result.Utterances) > 0 {
				text = formatUtterances(result.Utterances)
			}
			if err := writeTextOutput(cmd, output, text); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d characters, %d chunk(s), audio %s, took %s\n",
				len([]rune(result.Text)), result.Chunks,
				result.Duration.Round(time.Second), result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Deepgram model (see `lectern models`)")
	cmd.Flags().StringVar(&lang, "language", "", "Spoken language code (cs, en)")
	cmd.Flags().BoolVar(&forceChunking, "force-chunking", false, "Split the recording into chunks regardless of size")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the transcript to this file instead of stdout")
	cmd.Flags().BoolVar(&utterances, "utterances", false, "Print one timestamped line per speaker utterance")
	return cmd
}

// formatUtterances renders "[HH:MM:SS] Speaker N: text" lines.
func formatUtterances(utterances []deepgram.Utterance) string {
	lines := make([]string, 0, len(utterances))
	for _, u := range utterances {
		text := strings.TrimSpace(u.Transcript)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] Speaker %d: %s", clockStamp(u.Start), u.Speaker, text))
	}
	return strings.Join(lines, "\n")
}

func clockStamp(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
