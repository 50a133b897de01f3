package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/logging"
)

func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	if m.preflight == nil {
		return nil
	}
	var failed []string
	for _, r := range m.preflight(ctx) {
		check := []logging.Attr{logging.String("check", r.Name), logging.String("detail", r.Detail)}
		if r.Passed {
			logger.Info("preflight check passed",
				logging.Args(append(check, logging.String(logging.FieldEventType, "preflight_passed"))...)...)
			continue
		}
		logger.Error("preflight check failed", logging.Args(append(check,
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and restart the daemon"),
		)...)...)
		failed = append(failed, r.Name+": "+r.Detail)
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed: %s", strings.Join(failed, "; "))
}
