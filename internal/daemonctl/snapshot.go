package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/ipc"
	"lectern/internal/preflight"
	"lectern/internal/queue"
)

// Snapshot is everything `lectern status` renders.
type Snapshot struct {
	ipc.StatusResponse
	Severities        map[string]string
	SystemChecks      []api.StatusLine
	LibraryPaths      []api.StatusLine
	DependencySummary api.DependencySummary
}

// BuildStatusSnapshot asks the daemon for its status. When it is down, queue
// counts come from the database and dependencies are checked locally.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}
	if client, err := ipc.Dial(cfg.SocketPath()); err == nil {
		if resp, err := client.Status(); err == nil && resp != nil {
			snap.StatusResponse = *resp
		}
		_ = client.Close()
	}
	if !snap.Running {
		snap.QueueStats = offlineQueueStats(ctx, cfg)
	}
	if len(snap.Dependencies) == 0 {
		snap.Dependencies = api.FromDependencies(preflight.CheckSystemDeps(ctx, cfg))
	}

	snap.Severities = make(map[string]string, len(snap.Dependencies))
	for _, dep := range snap.Dependencies {
		snap.Severities[dep.Name] = DependencySeverity(dep)
	}
	snap.SystemChecks = BuildSystemChecks(cfg, snap.Running)
	snap.LibraryPaths = BuildLibraryPathChecks(cfg)
	snap.DependencySummary = BuildDependencySummary(snap.Dependencies)
	return snap, nil
}

// offlineQueueStats returns nil if the database cannot be read quickly.
func offlineQueueStats(ctx context.Context, cfg *config.Config) map[string]int {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, err := queue.Open(cfg)
	if err != nil {
		return nil
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil
	}
	out := make(map[string]int, len(stats))
	for status, n := range stats {
		out[string(status)] = n
	}
	return out
}

// DependencySeverity is "ok" when available, "warn" when an optional one is
// missing and "error" otherwise.
func DependencySeverity(dep ipc.DependencyStatus) string {
	if dep.Available {
		return "ok"
	}
	if dep.Optional {
		return "warn"
	}
	return "error"
}

func line(label, severity, detail string) api.StatusLine {
	return api.StatusLine{Label: label, Severity: severity, Detail: detail}
}

// BuildSystemChecks grades the daemon and each configured service from
// configuration alone. Nothing here touches the network.
func BuildSystemChecks(cfg *config.Config, running bool) []api.StatusLine {
	set := func(s string) bool { return strings.TrimSpace(s) != "" }
	var lines []api.StatusLine

	if running {
		lines = append(lines, line("Lectern", "ok", "Running"))
	} else {
		lines = append(lines, line("Lectern", "warn", "Not running (run `lectern start`)"))
	}

	if set(cfg.Deepgram.APIKey) {
		lines = append(lines, line("Deepgram", "ok", fmt.Sprintf("Configured (%s, %s)", cfg.Deepgram.Model, cfg.Deepgram.Language)))
	} else {
		lines = append(lines, line("Deepgram", "error", "Missing API key (set DEEPGRAM_API_KEY)"))
	}

	switch {
	case !cfg.Paraphrase.Enabled:
		lines = append(lines, line("Paraphrase", "info", "Disabled"))
	case !set(cfg.Paraphrase.APIKey):
		lines = append(lines, line("Paraphrase", "warn", "Missing API key (set OPENAI_API_KEY)"))
	default:
		lines = append(lines, line("Paraphrase", "ok", fmt.Sprintf("%s (%s)", cfg.Paraphrase.Model, cfg.Paraphrase.Style)))
	}

	switch {
	case !cfg.TTS.Enabled:
		lines = append(lines, line("Speech synthesis", "info", "Disabled"))
	case !set(cfg.TTS.URL):
		lines = append(lines, line("Speech synthesis", "warn", "Server URL not configured"))
	default:
		lines = append(lines, line("Speech synthesis", "ok", fmt.Sprintf("%s (%s)", cfg.TTS.Voice, cfg.TTS.Format)))
	}

	if set(cfg.Paths.InboxDir) {
		lines = append(lines, line("Inbox", "ok", "Watching "+cfg.Paths.InboxDir))
	} else {
		lines = append(lines, line("Inbox", "info", "Disabled"))
	}

	if set(cfg.Notifications.NtfyTopic) {
		lines = append(lines, line("Notifications", "ok", "Configured"))
	} else {
		lines = append(lines, line("Notifications", "warn", "Not configured"))
	}
	return lines
}

// BuildLibraryPathChecks verifies each configured output directory is
// writable. Unset directories are skipped.
func BuildLibraryPathChecks(cfg *config.Config) []api.StatusLine {
	dirs := [][2]string{
		{"Library", cfg.Paths.LibraryDir},
		{"Staging", cfg.Paths.StagingDir},
		{"Recordings", cfg.Paths.RecordingDir},
	}
	var lines []api.StatusLine
	for _, d := range dirs {
		if strings.TrimSpace(d[1]) == "" {
			continue
		}
		res := preflight.CheckDirectoryAccess(d[0], d[1])
		severity := "error"
		if res.Passed {
			severity = "ok"
		}
		lines = append(lines, line(d[0], severity, res.Detail))
	}
	return lines
}

// BuildDependencySummary folds dependency checks into one status row.
func BuildDependencySummary(deps []ipc.DependencyStatus) api.DependencySummary {
	if len(deps) == 0 {
		return api.DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}
	sum := api.DependencySummary{Total: len(deps), Severity: "ok"}
	for _, dep := range deps {
		switch {
		case dep.Available:
			sum.Available++
		case dep.Optional:
			sum.MissingOptional++
		default:
			sum.MissingRequired++
		}
	}
	sum.Detail = fmt.Sprintf("%d/%d available", sum.Available, sum.Total)
	if sum.Available == sum.Total {
		return sum
	}
	sum.Detail += fmt.Sprintf(" (missing: %d required, %d optional)", sum.MissingRequired, sum.MissingOptional)
	if sum.MissingRequired > 0 {
		sum.Severity = "error"
	} else {
		sum.Severity = "warn"
	}
	return sum
}
