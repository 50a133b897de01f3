package queue

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StagingRoot returns the per-item working directory rooted at base.
func (i Item) StagingRoot(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	return filepath.Join(base, fmt.Sprintf("queue-%d", i.ID))
}

// OutputStem returns the base name used for published artifacts: the job's
// file prefix when set, otherwise the source file name without extension.
func (i Item) OutputStem() string {
	if prefix := strings.TrimSpace(i.Options.Publish.FilePrefix); prefix != "" {
		return prefix
	}
	base := filepath.Base(i.SourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return fmt.Sprintf("lecture-%d", i.ID)
	}
	return stem
}
