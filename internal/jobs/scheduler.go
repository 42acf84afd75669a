package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Schedule runs every job once per interval until ctx is cancelled. Job
// errors are logged; the loop keeps going.
func (r *Runner) Schedule(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunAll(ctx)
		}
	}
}

// RunAll runs expiry, then connection refreshes, then snapshots.
func (r *Runner) RunAll(ctx context.Context) []*Report {
	var reports []*Report
	for _, name := range []string{ExpireCampaignsJob, RefreshConnectionsJob, CaptureSnapshotsJob} {
		rep, err := r.Run(ctx, name)
		if err != nil {
			if r.Log != nil {
				r.Log.Error("job failed", zap.String("job", name), zap.Error(err))
			}
			continue
		}
		reports = append(reports, rep)
	}
	return reports
}
