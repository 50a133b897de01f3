package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusKind is the badge shown next to a status row.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusBadges = [...]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) badge() (string, string) {
	if k < 0 || int(k) >= len(statusBadges) {
		k = statusInfo
	}
	b := statusBadges[k]
	return b.label, b.color
}

// severityKind maps the severity strings daemonctl puts in snapshots.
func severityKind(severity string) statusKind {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "ok":
		return statusOK
	case "warn", "warning":
		return statusWarn
	case "error":
		return statusError
	}
	return statusInfo
}

// paint wraps s in color when on is set.
func paint(s, color string, on bool) string {
	if !on {
		return s
	}
	return color + s + ansiReset
}

// renderStatusLine formats "  Label:               [KIND] message".
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	name, color := kind.badge()
	text := fmt.Sprintf("  %-20s [%s]", label+":", name)
	if message != "" {
		text += " " + message
	}
	return paint(text, color, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	heading := "== " + strings.TrimSpace(title) + " =="
	return []string{
		paint(heading, ansiBlue, colorize),
		paint(strings.Repeat("-", len(heading)), ansiBlue, colorize),
	}
}

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
