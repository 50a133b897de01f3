package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/ipc"
	"lectern/internal/logs"
	"lectern/internal/workflow"
)

const followWaitMillis = 5000

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
		itemID int64
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, dialErr := ipc.Dial(cfg.SocketPath())
			if dialErr != nil {
				return tailLogFile(cmd, logFilePath(cfg.Paths.LogDir, itemID), lines, follow)
			}
			defer client.Close()
			return streamDaemonLogs(cmd, client, lines, itemID, follow)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new events")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of recent events to show")
	cmd.Flags().Int64Var(&itemID, "item", 0, "Only show events for this queue item")
	return cmd
}

func streamDaemonLogs(cmd *cobra.Command, client *ipc.Client, limit int, itemID int64, follow bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	resp, err := client.LogTail(ipc.LogTailRequest{Tail: true, Limit: limit, ItemID: itemID})
	if err != nil {
		return fmt.Errorf("tail logs: %w", err)
	}
	printEvents(out, resp.Events, colorize)
	if !follow {
		if len(resp.Events) == 0 {
			fmt.Fprintln(out, "No log entries available")
		}
		return nil
	}

	cursor := resp.Next
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
		resp, err := client.LogTail(ipc.LogTailRequest{
			Since:      cursor,
			Follow:     true,
			WaitMillis: followWaitMillis,
			ItemID:     itemID,
		})
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return errors.New("daemon connection closed")
			}
			return fmt.Errorf("follow logs: %w", err)
		}
		printEvents(out, resp.Events, colorize)
		cursor = resp.Next
	}
}

func logFilePath(logDir string, itemID int64) string {
	if itemID > 0 {
		return filepath.Join(logDir, workflow.ItemLogDirName, fmt.Sprintf("item-%d.log", itemID))
	}
	return filepath.Join(logDir, "lectern.log")
}

// tailLogFile reads the log file directly while the daemon is down. JSON
// records render like streamed events; other lines print as written.
func tailLogFile(cmd *cobra.Command, path string, limit int, follow bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	emit := func(line string) {
		if evt, ok := logs.ParseLine(line); ok {
			fmt.Fprintln(out, formatLogEvent(evt, colorize))
			return
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Daemon not running; reading %s\n", path)
	lines, offset, err := logs.Last(path, limit)
	if err != nil {
		return err
	}
	for _, line := range lines {
		emit(line)
	}
	if !follow {
		if len(lines) == 0 {
			fmt.Fprintln(out, "No log entries available")
		}
		return nil
	}
	return logs.Follow(cmd.Context(), path, offset, emit)
}

func printEvents(w io.Writer, events []api.LogEvent, colorize bool) {
	for _, evt := range events {
		fmt.Fprintln(w, formatLogEvent(evt, colorize))
	}
}

// formatLogEvent renders "15:04:05 LEVEL [component] message key=value".
func formatLogEvent(evt api.LogEvent, colorize bool) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteByte(' ')
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	b.WriteString(paint(fmt.Sprintf("%-5s", level), levelColor(level), colorize))
	if evt.Component != "" {
		fmt.Fprintf(&b, " [%s]", evt.Component)
	}
	if evt.ItemID != 0 {
		fmt.Fprintf(&b, " #%d", evt.ItemID)
	}
	b.WriteByte(' ')
	b.WriteString(evt.Message)

	keys := make([]string, 0, len(evt.Fields))
	for key := range evt.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, evt.Fields[key])
	}
	return b.String()
}

func levelColor(level string) string {
	switch level {
	case "ERROR":
		return ansiRed
	case "WARN":
		return ansiYellow
	case "DEBUG":
		return ansiBlue
	default:
		return ansiGreen
	}
}
