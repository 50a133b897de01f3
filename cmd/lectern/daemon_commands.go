package main

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/daemonctl"
	"lectern/internal/ipc"
)

const (
	stopGracePeriod   = 5 * time.Second
	startWaitDuration = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStartCommand(ctx),
		newStopCommand(ctx),
		newRestartCommand(ctx),
		newStatusCommand(ctx),
	}
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the lectern daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cfg.SocketPath(), exe, daemonLaunchOptions(ctx), startWaitDuration)
			if err != nil {
				return err
			}
			if result.Launched {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon not running, launching...")
			}
			printStartState(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the lectern daemon and terminate its process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg, stopGracePeriod)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			case err != nil:
				return err
			case result.StopAcknowledged:
				fmt.Fprintln(out, "Stopping daemon workflow...")
			default:
				fmt.Fprintln(out, "Stop request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(out, "Killed unresponsive daemon process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(out, "Daemon stopped")
			return nil
		},
	}
}

func newRestartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the lectern daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(cfg, exe, daemonLaunchOptions(ctx), stopGracePeriod, startWaitDuration)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped")
			}
			printStartState(cmd.OutOrStdout(), result.Start)
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system, dependency and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, snapshot)
			}
			out := cmd.OutOrStdout()
			renderStatus(out, snapshot, shouldColorize(out))
			return nil
		},
	}
}

// renderStatus prints the status sections followed by the queue table.
func renderStatus(w io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	printSection := func(title string, lines []string, trailingBlank bool) {
		for _, l := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(w, l)
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
		if trailingBlank {
			fmt.Fprintln(w)
		}
	}
	printSection("System Status", statusLines(snap.SystemChecks, colorize), true)
	printSection("Dependencies", dependencyLines(snap.Dependencies, snap.DependencySummary, colorize), true)
	printSection("Library Paths", statusLines(snap.LibraryPaths, colorize), true)
	if snap.LastError != "" {
		printSection("Last Error", []string{renderStatusLine("Workflow", statusError, snap.LastError, colorize)}, true)
	}

	rows := buildQueueStatusRows(snap.QueueStats)
	if len(rows) == 0 {
		printSection("Queue Status", []string{"Queue is empty"}, false)
		return
	}
	printSection("Queue Status", []string{
		renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}),
	}, false)
}

func printStartState(w io.Writer, result daemonctl.StartResult) {
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(w, "Daemon started")
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(w, "Daemon already running")
	case daemonctl.StartStateRequested:
		fmt.Fprintln(w, cmp.Or(strings.TrimSpace(result.Message), "Start request sent"))
	}
}

func statusLines(lines []api.StatusLine, colorize bool) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, renderStatusLine(line.Label, severityKind(line.Severity), line.Detail, colorize))
	}
	return out
}

func dependencyLines(deps []ipc.DependencyStatus, summary api.DependencySummary, colorize bool) []string {
	lines := []string{renderStatusLine("Summary", severityKind(summary.Severity), summary.Detail, colorize)}
	for _, dep := range deps {
		kind := severityKind(daemonctl.DependencySeverity(dep))
		detail := cmp.Or(strings.TrimSpace(dep.Detail), "not available")
		if dep.Available {
			detail = "Ready"
			if dep.Command != "" {
				detail = "Ready (command: " + dep.Command + ")"
			}
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{ConfigPath: ctx.configFlagValue()}
	if ctx.logLevelFlag != nil {
		opts.LogLevel = strings.TrimSpace(*ctx.logLevelFlag)
	}
	return opts
}
