package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/language"
	"lectern/internal/recording"
	"lectern/internal/services/deepgram"
	"lectern/internal/services/paraphraser"
	"lectern/internal/services/tts"
)

var skipConfig = map[string]string{"skipConfigLoad": "true"}

func newCatalogCommands() []*cobra.Command {
	voices := &cobra.Command{
		Use:         "voices",
		Short:       "List speech synthesis voices and formats",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, v := range tts.Voices() {
				rows = append(rows, []string{v.Key, v.Engine})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Voice", "Engine"}, rows, nil))
			fmt.Fprintf(out, "Formats: %s\n", strings.Join(tts.Formats(), ", "))
			return nil
		},
	}

	styles := &cobra.Command{
		Use:         "styles",
		Short:       "List paraphrase styles and formality levels",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, s := range paraphraser.Styles() {
				rows = append(rows, []string{s.Code, s.Name})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Style", "Name"}, rows, nil))
			fmt.Fprintf(out, "Formality: %s\n", strings.Join(paraphraser.Formalities(), ", "))
			return nil
		},
	}

	models := &cobra.Command{
		Use:         "models",
		Short:       "List transcription models, languages and recording options",
		Annotations: skipConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Models: %s\n", strings.Join(deepgram.Models(), ", "))
			rows := make([][]string, 0)
			for _, lang := range language.Supported() {
				rows = append(rows, []string{lang.Code, lang.Name})
			}
			fmt.Fprintln(out, renderTable([]string{"Language", "Name"}, rows, nil))
			fmt.Fprintf(out, "Recording sources: %s\n", strings.Join(recording.Sources(), ", "))
			fmt.Fprintf(out, "Recording qualities: %s\n", strings.Join(recording.Qualities(), ", "))
			return nil
		},
	}
	return []*cobra.Command{voices, styles, models}
}
