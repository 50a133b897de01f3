package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/queue"
)

type overrideFlags struct {
	title              string
	model              string
	language           string
	forceChunking      bool
	paraphrase         bool
	style              string
	formality          string
	paraphraseLanguage string
	tts                bool
	voice              string
	format             string
	outputDir          string
	prefix             string
}

func (f *overrideFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "Lecture title (defaults to the file name)")
	flags.StringVar(&f.model, "model", "", "Deepgram model override")
	flags.StringVar(&f.language, "language", "", "Transcription language override (cs, en)")
	flags.BoolVar(&f.forceChunking, "force-chunking", false, "Split the recording into chunks regardless of size")
	flags.BoolVar(&f.paraphrase, "paraphrase", false, "Enable or disable paraphrasing (--paraphrase=false)")
	flags.StringVar(&f.style, "style", "", "Paraphrase style")
	flags.StringVar(&f.formality, "formality", "", "Paraphrase formality (neutral, formal, informal)")
	flags.StringVar(&f.paraphraseLanguage, "paraphrase-language", "", "Paraphrase output language")
	flags.BoolVar(&f.tts, "tts", false, "Enable or disable speech synthesis (--tts=false)")
	flags.StringVar(&f.voice, "voice", "", "Speech synthesis voice")
	flags.StringVar(&f.format, "format", "", "Speech audio format (wav, mp3)")
	flags.StringVar(&f.outputDir, "output-dir", "", "Publish into this directory instead of the library")
	flags.StringVar(&f.prefix, "prefix", "", "File name prefix for published artifacts")
}

// overrides only carries the toggles the user actually passed so the
// configured defaults apply otherwise.
func (f *overrideFlags) overrides(cmd *cobra.Command) daemon.JobOverrides {
	out := daemon.JobOverrides{
		Model:              strings.TrimSpace(f.model),
		Language:           strings.TrimSpace(f.language),
		ForceChunking:      f.forceChunking,
		Style:              strings.TrimSpace(f.style),
		Formality:          strings.TrimSpace(f.formality),
		ParaphraseLanguage: strings.TrimSpace(f.paraphraseLanguage),
		Voice:              strings.TrimSpace(f.voice),
		Format:             strings.TrimSpace(f.format),
		OutputDir:          strings.TrimSpace(f.outputDir),
		FilePrefix:         strings.TrimSpace(f.prefix),
	}
	if cmd.Flags().Changed("paraphrase") {
		value := f.paraphrase
		out.Paraphrase = &value
	}
	if cmd.Flags().Changed("tts") {
		value := f.tts
		out.TTS = &value
	}
	return out
}

func newAddFileCommand(ctx *commandContext) *cobra.Command {
	var flags overrideFlags
	cmd := &cobra.Command{
		Use:   "add-file <path...>",
		Short: "Queue lecture recordings for transcription",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.title != "" && len(args) > 1 {
				return fmt.Errorf("--title applies to a single file")
			}
			overrides := flags.overrides(cmd)
			results := make([]api.QueueItem, 0, len(args))
			out := cmd.OutOrStdout()
			for _, path := range args {
				item, existing, err := ctx.enqueue(cmd, ipc.AddFileRequest{
					Path:      path,
					Title:     flags.title,
					Overrides: overrides,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				results = append(results, item)
				if ctx.jsonMode() {
					continue
				}
				if existing {
					fmt.Fprintf(out, "Already queued: #%d %s (%s)\n", item.ID, api.DisplayTitle(item), formatStatusLabel(item.Status))
					continue
				}
				fmt.Fprintf(out, "Queued #%d %s\n", item.ID, api.DisplayTitle(item))
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, api.QueueListResponse{Items: results})
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// enqueue submits through the daemon when it runs and writes straight to the
// queue database otherwise; the daemon picks the item up on its next start.
func (c *commandContext) enqueue(cmd *cobra.Command, req ipc.AddFileRequest) (api.QueueItem, bool, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return api.QueueItem{}, false, err
	}
	if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
		defer client.Close()
		resp, err := client.AddFile(req)
		if err != nil {
			return api.QueueItem{}, false, err
		}
		return resp.Item, resp.Existing, nil
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return api.QueueItem{}, false, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	item, existing, err := daemon.Enqueue(cmd.Context(), cfg, store, nil, daemon.AddFileRequest{
		Path:      req.Path,
		Title:     req.Title,
		Overrides: req.Overrides,
		Origin:    "cli",
	})
	if err != nil {
		return api.QueueItem{}, false, err
	}
	return api.FromQueueItem(item), existing, nil
}
