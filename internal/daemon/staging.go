package daemon

import (
	"context"
	"time"

	"lectern/internal/logging"
	"lectern/internal/staging"
)

// stagingScratchMaxAge bounds how long chunking scratch directories survive
// a crash before the next start removes them.
const stagingScratchMaxAge = 48 * time.Hour

// sweepStaging removes staging directories of deleted items. It runs before
// the workflow starts so no stage is writing into the staging root.
func (d *Daemon) sweepStaging(ctx context.Context) {
	items, err := d.store.List(ctx)
	if err != nil {
		d.logger.Warn("staging sweep skipped",
			logging.Error(err),
			logging.String(logging.FieldEventType, "staging_cleanup_skipped"),
			logging.String(logging.FieldImpact, "orphaned staging directories remain on disk"))
		return
	}
	known := make(map[int64]struct{}, len(items))
	for _, item := range items {
		known[item.ID] = struct{}{}
	}
	result, err := staging.Sweep(ctx, d.cfg.Paths.StagingDir, staging.SweepOptions{
		Known: func(id int64) bool {
			_, ok := known[id]
			return ok
		},
		MaxAge: stagingScratchMaxAge,
	}, d.logger)
	if err != nil {
		d.logger.Warn("staging sweep failed", logging.Error(err))
		return
	}
	if len(result.Removed) > 0 {
		d.logger.Info("staging sweep complete",
			logging.Int("removed", len(result.Removed)),
			logging.Int("failed", len(result.Failed)),
			logging.String(logging.FieldEventType, "staging_sweep"))
	}
}
