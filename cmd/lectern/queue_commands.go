package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/queue"
	"lectern/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the lecture queue",
	}
	queueCmd.AddCommand(
		newQueueListCommand(ctx),
		newQueueShowCommand(ctx),
		newQueueClearCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueRemoveCommand(ctx),
		newQueueHealthCommand(ctx),
		newQueueResetCommand(ctx),
		newQueueDBHealthCommand(ctx),
	)
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				items, err := session.Access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.QueueListResponse{Items: api.SortQueueItemsNewestFirst(items)})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Created"},
					buildQueueListRows(items),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show details of one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				item, err := session.Access.Describe(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("queue item %d not found", ids[0])
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, api.QueueItemResponse{Item: *item})
				}
				for _, line := range itemDetailLines(*item) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var completed, failed bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue items (all, completed or failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if completed && failed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				var (
					removed int64
					err     error
					label   = "queue"
				)
				switch {
				case completed:
					removed, err = session.Access.ClearCompleted(cmd.Context())
					label = "completed"
				case failed:
					removed, err = session.Access.ClearFailed(cmd.Context())
					label = "failed"
				default:
					removed, err = session.Access.ClearAll(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s items\n", removed, label)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "Only remove completed items")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only remove failed items")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed items from the stage they failed in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := session.Access.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.jsonMode() {
						return writeJSON(cmd, api.RetryItemsResult{UpdatedCount: updated})
					}
					fmt.Fprintf(out, "Retried %d failed items\n", updated)
					return nil
				}
				result, err := api.RetryFailedItemsByID(cmd.Context(), session.Access, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				for _, item := range result.Items {
					switch item.Outcome {
					case api.RetryItemUpdated:
						fmt.Fprintf(out, "Item %d: retrying from %s\n", item.ID, formatStatusLabel(item.ResumeFrom))
					case api.RetryItemNotFound:
						fmt.Fprintf(out, "Item %d: not found\n", item.ID)
					case api.RetryItemNotFailed:
						fmt.Fprintf(out, "Item %d: not failed (status %s)\n", item.ID, formatStatusLabel(item.PriorStatus))
					}
				}
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id...>",
		Short: "Remove specific queue items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				result, err := api.RemoveItemsByID(cmd.Context(), session.Access, ids)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				for _, item := range result.Items {
					if item.Outcome == api.RemoveItemRemoved {
						fmt.Fprintf(out, "Item %d: removed\n", item.ID)
					} else {
						fmt.Fprintf(out, "Item %d: not found\n", item.ID)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize queue counts by lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				health, err := session.Access.Health(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, health)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d\n", health.Total)
				fmt.Fprintf(out, "Pending: %d\n", health.Pending)
				fmt.Fprintf(out, "Processing: %d\n", health.Processing)
				fmt.Fprintf(out, "Failed: %d\n", health.Failed)
				fmt.Fprintf(out, "Completed: %d\n", health.Completed)
				if !session.ViaDaemon {
					fmt.Fprintln(out, "(daemon not running; read from queue database)")
				}
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return items stuck in a processing state to the start of their stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				updated, err := session.Access.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d in-flight items\n", updated)
				return nil
			})
		},
	}
}

func newQueueDBHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "db-health",
		Short: "Check queue database schema and integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.databaseHealth(cmd)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %s\n", resp.SchemaVersion)
			fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(resp.TableExists))
			if len(resp.MissingColumns) > 0 {
				missing := append([]string(nil), resp.MissingColumns...)
				sort.Strings(missing)
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
			fmt.Fprintf(out, "Total items: %d\n", resp.TotalItems)
			if resp.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", resp.Error)
			}
			return nil
		},
	}
}

// databaseHealth asks the daemon and falls back to opening the database.
func (c *commandContext) databaseHealth(cmd *cobra.Command) (*ipc.DatabaseHealthResponse, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if client, dialErr := ipc.Dial(cfg.SocketPath()); dialErr == nil {
		defer client.Close()
		return client.DatabaseHealth()
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	health, err := store.CheckHealth(cmd.Context())
	if err != nil && health.Error == "" {
		health.Error = err.Error()
	}
	return &health, nil
}
