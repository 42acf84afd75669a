// Package jobs holds the periodic maintenance work: expiring campaigns,
// capturing campaign growth snapshots and refreshing social connections.
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/01moynul/collabhub-golang/internal/connections"
	"github.com/01moynul/collabhub-golang/internal/metrics"
	"github.com/01moynul/collabhub-golang/internal/models"
	"github.com/01moynul/collabhub-golang/internal/notify"
)

// Job names, as accepted by Run and the admin trigger endpoint.
const (
	ExpireCampaignsJob    = "expire-campaigns"
	CaptureSnapshotsJob   = "capture-snapshots"
	RefreshConnectionsJob = "refresh-connections"
)

var ErrUnknownJob = errors.New("unknown job")

// Report summarises one job run. Failures of single items never abort a run;
// they are counted and listed here.
type Report struct {
	Job        string    `json:"job"`
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	Errors     []string  `json:"errors,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err.Error())
}

// Runner executes jobs against the primary database.
type Runner struct {
	DB          *sql.DB
	Connections *connections.Service
	Log         *zap.Logger
	// Concurrency bounds parallel platform refreshes.
	Concurrency int
	Now         func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) start(name string) *Report {
	return &Report{Job: name, StartedAt: r.now()}
}

func (r *Runner) finish(rep *Report) *Report {
	rep.FinishedAt = r.now()
	if r.Log != nil {
		r.Log.Info("job finished",
			zap.String("job", rep.Job),
			zap.Int("processed", rep.Processed),
			zap.Int("failed", rep.Failed),
			zap.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)))
	}
	return rep
}

// Run executes the job with the given name.
func (r *Runner) Run(ctx context.Context, name string) (*Report, error) {
	switch name {
	case ExpireCampaignsJob:
		return r.ExpireCampaigns(ctx)
	case CaptureSnapshotsJob:
		return r.CaptureSnapshots(ctx)
	case RefreshConnectionsJob:
		return r.RefreshConnections(ctx)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

type expiring struct {
	id          int64
	title       string
	brandUserID int64
}

// ExpireCampaigns completes every ACTIVE or PAUSED campaign whose end date has
// passed, withdraws its pending invitations and tells the brand.
func (r *Runner) ExpireCampaigns(ctx context.Context) (*Report, error) {
	rep := r.start(ExpireCampaignsJob)
	now := r.now()

	// 1. --- Find expired campaigns ---
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.title, b.user_id
		FROM campaigns c
		JOIN brands b ON b.id = c.brand_id
		WHERE c.status IN (?, ?) AND c.end_date < ?
		ORDER BY c.id`,
		models.CampaignActive, models.CampaignPaused, now)
	if err != nil {
		return nil, fmt.Errorf("query expired campaigns: %w", err)
	}
	var due []expiring
	for rows.Next() {
		var e expiring
		if err := rows.Scan(&e.id, &e.title, &e.brandUserID); err != nil {
			rows.Close()
			return nil, err
		}
		due = append(due, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 2. --- Close each one in its own transaction ---
	for _, e := range due {
		if err := ctx.Err(); err != nil {
			return r.finish(rep), err
		}
		done, err := r.expireOne(ctx, e, now)
		if err != nil {
			rep.fail(fmt.Errorf("campaign %d: %w", e.id, err))
			continue
		}
		if done {
			rep.Processed++
		}
	}
	return r.finish(rep), nil
}

func (r *Runner) expireOne(ctx context.Context, e expiring, now time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		models.CampaignCompleted, now, e.id, models.CampaignActive, models.CampaignPaused)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Someone else changed it in between.
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE campaign_invitations SET status = ?, responded_at = ? WHERE campaign_id = ? AND status = ?`,
		models.InvitationWithdrawn, now, e.id, models.InvitationPending); err != nil {
		return false, err
	}

	msg := fmt.Sprintf("Your campaign '%s' has ended and was marked as completed.", e.title)
	if err := notify.Add(tx, e.brandUserID, msg, fmt.Sprintf("/brand/campaigns/%d", e.id)); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

type participant struct {
	campaignID   int64
	influencerID int64
	platform     sql.NullString
}

type platformStats struct {
	platform string
	stats    metrics.Stats
}

// CaptureSnapshots records the current stats of every accepted influencer in
// every ACTIVE campaign. The first snapshot per account is the baseline.
func (r *Runner) CaptureSnapshots(ctx context.Context) (*Report, error) {
	rep := r.start(CaptureSnapshotsJob)
	now := r.now()

	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, ci.influencer_id, c.platform
		FROM campaigns c
		JOIN campaign_invitations ci ON ci.campaign_id = c.id
		WHERE c.status = ? AND ci.status = ?
		ORDER BY c.id, ci.influencer_id`,
		models.CampaignActive, models.InvitationAccepted)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	var parts []participant
	for rows.Next() {
		var p participant
		if err := rows.Scan(&p.campaignID, &p.influencerID, &p.platform); err != nil {
			rows.Close()
			return nil, err
		}
		parts = append(parts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return r.finish(rep), err
		}
		n, err := r.snapshotParticipant(ctx, p, now)
		rep.Processed += n
		if err != nil {
			rep.fail(fmt.Errorf("campaign %d influencer %d: %w", p.campaignID, p.influencerID, err))
		}
	}
	return r.finish(rep), nil
}

func (r *Runner) snapshotParticipant(ctx context.Context, p participant, now time.Time) (int, error) {
	query := `SELECT platform, followers, likes, media_count FROM influencer_platforms WHERE influencer_id = ? AND connected = ?`
	args := []any{p.influencerID, true}
	if p.platform.Valid && p.platform.String != "" {
		query += ` AND platform = ?`
		args = append(args, p.platform.String)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	var current []platformStats
	for rows.Next() {
		var ps platformStats
		if err := rows.Scan(&ps.platform, &ps.stats.Followers, &ps.stats.Likes, &ps.stats.MediaCount); err != nil {
			rows.Close()
			return 0, err
		}
		current = append(current, ps)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	written := 0
	for _, ps := range current {
		prev, err := r.lastSnapshot(ctx, p.campaignID, p.influencerID, ps.platform)
		if err != nil {
			return written, err
		}
		g := metrics.Compute(prev, ps.stats)

		_, err = r.DB.ExecContext(ctx, `
			INSERT INTO campaign_snapshots
			(campaign_id, influencer_id, platform, followers, likes, media_count, followers_growth, likes_growth, growth_rate, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.campaignID, p.influencerID, ps.platform, ps.stats.Followers, ps.stats.Likes, ps.stats.MediaCount,
			g.Followers, g.Likes, g.Rate, now)
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func (r *Runner) lastSnapshot(ctx context.Context, campaignID, influencerID int64, platform string) (*metrics.Stats, error) {
	var s metrics.Stats
	err := r.DB.QueryRowContext(ctx, `
		SELECT followers, likes, media_count FROM campaign_snapshots
		WHERE campaign_id = ? AND influencer_id = ? AND platform = ?
		ORDER BY captured_at DESC, id DESC LIMIT 1`,
		campaignID, influencerID, platform).Scan(&s.Followers, &s.Likes, &s.MediaCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RefreshConnections refreshes tokens and stats of every connected platform,
// a bounded number at a time. Every connection is attempted.
func (r *Runner) RefreshConnections(ctx context.Context) (*Report, error) {
	rep := r.start(RefreshConnectionsJob)

	conns, err := r.Connections.Connected(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = 4
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)

	for _, c := range conns {
		c := c
		g.Go(func() error {
			err := r.Connections.Refresh(ctx, c)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.fail(fmt.Errorf("%s connection %d: %w", c.Platform, c.ID, err))
				if r.Log != nil {
					r.Log.Warn("connection refresh failed",
						zap.Int64("influencer_id", c.InfluencerID),
						zap.String("platform", c.Platform),
						zap.Error(err))
				}
				return nil
			}
			rep.Processed++
			return nil
		})
	}
	_ = g.Wait()

	return r.finish(rep), nil
}
