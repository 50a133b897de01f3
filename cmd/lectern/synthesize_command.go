package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/daemonrun"
	"lectern/internal/services/tts"
)

func newSynthesizeCommand(ctx *commandContext) *cobra.Command {
	var (
		voice     string
		format    string
		chunkSize int
		output    string
	)
	cmd := &cobra.Command{
		Use:   "synthesize <file|->",
		Short: "Render a text file (or stdin) as speech in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.foregroundLogger(cmd, cfg)
			svc := daemonrun.NewTTSService(cfg, logger)
			if svc == nil {
				return errors.New("tts.url is required for speech synthesis")
			}

			voice = firstNonEmpty(voice, cfg.TTS.Voice, tts.DefaultVoice)
			if _, err := tts.ResolveVoice(voice); err != nil {
				return err
			}
			format = strings.ToLower(firstNonEmpty(format, cfg.TTS.Format, tts.DefaultFormat))
			if !tts.IsFormat(format) {
				return fmt.Errorf("unknown format %q (choose from %s)", format, strings.Join(tts.Formats(), ", "))
			}
			if chunkSize <= 0 {
				chunkSize = cfg.TTS.ChunkSize
			}

			text, err := readTextInput(cmd, args[0])
			if err != nil {
				return err
			}
			target := strings.TrimSpace(output)
			if target == "" {
				target = defaultSpeechPath(args[0], format)
			}
			progress := newProgressPrinter(cmd, "Synthesizing")
			path, err := svc.GenerateSingle(cmd.Context(), text, voice, format, target, chunkSize, progress.Report)
			progress.Done()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "Voice key (see `lectern voices`)")
	cmd.Flags().StringVar(&format, "format", "", "Audio format (wav, mp3)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Characters per synthesis request")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Audio file to write")
	return cmd
}

// defaultSpeechPath puts the audio next to the input, or in the working
// directory for stdin input.
func defaultSpeechPath(input, format string) string {
	if input == "-" {
		return "speech." + format
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "." + format
}
