package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/daemon"
	"lectern/internal/daemonrun"
	"lectern/internal/ipc"
	"lectern/internal/notifications"
	"lectern/internal/queue"
	"lectern/internal/stageexec"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags overrideFlags
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Run the full pipeline for one recording in the foreground",
		Long: "Queue a recording and run transcription, paraphrasing, speech synthesis and\n" +
			"publishing in this process. Refuses to run while the daemon is active.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(false, false); err != nil {
				return err
			}
			if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
				_ = client.Close()
				return errors.New("daemon is running; use `lectern add-file` instead")
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			logger := ctx.foregroundLogger(cmd, cfg)
			item, existing, err := daemon.Enqueue(cmd.Context(), cfg, store, logger, daemon.AddFileRequest{
				Path:      args[0],
				Title:     flags.title,
				Overrides: flags.overrides(cmd),
				Origin:    "process",
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if existing && !ctx.jsonMode() {
				fmt.Fprintf(out, "Resuming #%d %s from %s\n", item.ID, api.DisplayTitle(api.FromQueueItem(item)), formatStatusLabel(string(item.Status)))
			}

			notifier := notifications.NewService(cfg)
			steps := daemonrun.PipelineSteps(daemonrun.BuildStages(cfg, store, logger, notifier))
			runErr := stageexec.RunSteps(cmd.Context(), stageexec.Options{
				Logger:   logger,
				Store:    store,
				Notifier: notifier,
				Item:     item,
			}, steps)

			view := api.FromQueueItem(item)
			if ctx.jsonMode() {
				if err := writeJSON(cmd, api.QueueItemResponse{Item: view}); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				return fmt.Errorf("item %d failed: %w", item.ID, runErr)
			}
			fmt.Fprintf(out, "Completed #%d %s\n", view.ID, api.DisplayTitle(view))
			for _, artifact := range api.Artifacts(view) {
				fmt.Fprintf(out, "  %-12s %s\n", artifact.Label+":", artifact.Path)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
