package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/daemonrun"
	"lectern/internal/services/paraphraser"
)

func newParaphraseCommand(ctx *commandContext) *cobra.Command {
	var (
		style     string
		formality string
		lang      string
		maxLength int
		output    string
	)
	cmd := &cobra.Command{
		Use:   "paraphrase <file|->",
		Short: "Paraphrase a text file (or stdin) in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.foregroundLogger(cmd, cfg)
			svc := daemonrun.NewParaphraseService(cfg, logger)
			if svc == nil {
				return errors.New("paraphrase.api_key is required. Set OPENAI_API_KEY or edit the config file")
			}

			opts := daemonrun.ParaphraseDefaults(cfg)
			if s := strings.TrimSpace(style); s != "" {
				if !paraphraser.IsStyle(s) {
					return fmt.Errorf("unknown style %q (see `lectern styles`)", s)
				}
				opts.Style = s
			}
			if f := strings.TrimSpace(formality); f != "" {
				if !paraphraser.IsFormality(f) {
					return fmt.Errorf("unknown formality %q (choose from %s)", f, strings.Join(paraphraser.Formalities(), ", "))
				}
				opts.Formality = f
			}
			if l := strings.TrimSpace(lang); l != "" {
				opts.Language = l
			}
			if maxLength > 0 {
				opts.MaxLength = maxLength
			}

			text, err := readTextInput(cmd, args[0])
			if err != nil {
				return err
			}
			progress := newProgressPrinter(cmd, "Paraphrasing")
			result, err := svc.Paraphrase(cmd.Context(), text, opts, progress.Report)
			progress.Done()
			if err != nil {
				return err
			}
			return writeTextOutput(cmd, output, result.Text)
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "Paraphrase style (see `lectern styles`)")
	cmd.Flags().StringVar(&formality, "formality", "", "Formality level")
	cmd.Flags().StringVar(&lang, "language", "", "Output language code")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Characters per request before the text is chunked")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the paraphrase to this file instead of stdout")
	return cmd
}
