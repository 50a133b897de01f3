package main

import (
	"github.com/spf13/cobra"
)

type commandGroup struct {
	id, title string
	commands  []*cobra.Command
}

func newRootCommand() *cobra.Command {
	var (
		configFlag   string
		logLevelFlag string
		jsonFlag     bool
	)
	ctx := newCommandContext(&configFlag, &logLevelFlag, &jsonFlag)

	root := &cobra.Command{
		Use:           "lectern",
		Short:         "Lecture transcription, paraphrase and speech pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.StringVar(&logLevelFlag, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.BoolVar(&jsonFlag, "json", false, "Print machine-readable JSON where supported")

	groups := []commandGroup{
		{"daemon", "Daemon:", append(newDaemonCommands(ctx), newDaemonRunCommand(ctx))},
		{"queue", "Queue:", []*cobra.Command{
			newAddFileCommand(ctx),
			newQueueCommand(ctx),
			newShowCommand(ctx),
			newLogsCommand(ctx),
			newStagingCommand(ctx),
		}},
		{"pipeline", "Pipeline:", []*cobra.Command{
			newTranscribeCommand(ctx),
			newParaphraseCommand(ctx),
			newSynthesizeCommand(ctx),
			newProcessCommand(ctx),
			newRecordCommand(ctx),
			newLiveCommand(ctx),
		}},
		{"setup", "Setup:", append([]*cobra.Command{
			newConfigCommand(ctx),
			newTestNotifyCommand(ctx),
		}, newCatalogCommands()...)},
	}
	for _, g := range groups {
		root.AddGroup(&cobra.Group{ID: g.id, Title: g.title})
		for _, cmd := range g.commands {
			cmd.GroupID = g.id
			root.AddCommand(cmd)
		}
	}
	return root
}
