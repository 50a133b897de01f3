package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lectern/internal/queueaccess"
	"lectern/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and clean per-item working directories",
	}
	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))
	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging directories with their size and age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.List(cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories found")
				return nil
			}
			var total int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				total += dir.Size
				item := "-"
				if dir.ItemID > 0 {
					item = strconv.FormatInt(dir.ItemID, 10)
				}
				rows = append(rows, []string{dir.Name, item, humanize.Bytes(uint64(dir.Size)), humanize.RelTime(dir.ModTime, time.Now(), "ago", "from now")})
			}
			fmt.Fprintf(out, "Staging directory: %s\n", cfg.Paths.StagingDir)
			fmt.Fprintln(out, renderTable([]string{"Directory", "Item", "Size", "Modified"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))
			fmt.Fprintf(out, "Total: %d directories, %s\n", len(dirs), humanize.Bytes(uint64(total)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		all    bool
		maxAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging directories of items no longer in the queue",
		Long: `Remove staging directories that belong to deleted queue items, plus chunking
scratch directories older than --max-age.

Use --all to remove every staging directory, including those of queued items.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Paths.StagingDir) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
				return nil
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				items, err := session.Access.List(cmd.Context(), nil)
				if err != nil {
					return err
				}
				known := make(map[int64]struct{}, len(items))
				for _, item := range items {
					known[item.ID] = struct{}{}
				}
				result, err := staging.Sweep(cmd.Context(), cfg.Paths.StagingDir, staging.SweepOptions{
					Known: func(id int64) bool {
						_, ok := known[id]
						return ok
					},
					MaxAge: maxAge,
					All:    all,
				}, ctx.foregroundLogger(cmd, cfg))
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if len(result.Removed) == 0 && len(result.Failed) == 0 {
					fmt.Fprintln(out, "No staging directories to clean")
					return nil
				}
				for _, removed := range result.Removed {
					fmt.Fprintf(out, "Removed %s (%s)\n", removed.Path, removed.Reason)
				}
				for _, failed := range result.Failed {
					fmt.Fprintf(out, "Error: %s: %v\n", failed.Path, failed.Err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Remove all staging directories, including those of queued items")
	cmd.Flags().DurationVar(&maxAge, "max-age", 48*time.Hour, "Remove scratch directories older than this")
	return cmd
}
