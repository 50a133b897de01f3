package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/queueaccess"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var (
		paraphrase bool
		copyText   bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the transcript (or paraphrase) of a queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			var transcript *api.TranscriptResponse
			err = ctx.withQueue(func(session queueaccess.Session) error {
				item, err := session.Access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", ids[0])
				}
				transcript, err = api.ReadTranscript(*item)
				return err
			})
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, transcript)
			}

			text := transcript.Transcript
			if paraphrase {
				if strings.TrimSpace(transcript.Paraphrase) == "" {
					return errors.New("item has no paraphrase")
				}
				text = transcript.Paraphrase
			}
			if copyText {
				if err := clipboard.WriteAll(text); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Copied %d characters to the clipboard\n", len([]rune(text)))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&paraphrase, "paraphrase", false, "Show the paraphrase instead of the transcript")
	cmd.Flags().BoolVar(&copyText, "copy", false, "Copy the text to the clipboard instead of printing it")
	return cmd
}
