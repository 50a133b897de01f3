package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

// readTextInput reads a text file, or stdin when path is "-".
func readTextInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("input %s is empty", path)
	}
	return text, nil
}

// writeTextOutput prints text to stdout, or writes it atomically to path.
func writeTextOutput(cmd *cobra.Command, path, text string) error {
	if strings.TrimSpace(path) == "" || path == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := renameio.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}

// progressPrinter returns a callback that redraws "label NN%" on stderr when
// it is a terminal. Non-terminals get no progress output.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	label   string
	enabled bool
	last    int
}

func newProgressPrinter(cmd *cobra.Command, label string) *progressPrinter {
	w := cmd.ErrOrStderr()
	return &progressPrinter{w: w, label: label, enabled: shouldColorize(w), last: -1}
}

func (p *progressPrinter) Report(fraction float64) {
	if !p.enabled {
		return
	}
	percent := int(fraction*100 + 0.5)
	percent = min(max(percent, 0), 100)
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.w, "\r%s %3d%%", p.label, percent)
}

func (p *progressPrinter) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}
