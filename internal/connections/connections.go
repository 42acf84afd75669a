// Package connections stores influencers' social platform connections and
// keeps their tokens and statistics fresh.
package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/collabhub-golang/internal/metrics"
	"github.com/01moynul/collabhub-golang/internal/social"
)

// refreshLeeway is how close to expiry a token may get before we refresh it.
const refreshLeeway = 10 * time.Minute

// Connection is one influencer_platforms row with its tokens.
type Connection struct {
	ID           int64
	InfluencerID int64
	Platform     string
	ExternalID   string
	Token        social.Token
}

// Service reads and writes connections.
type Service struct {
	DB     *sql.DB
	Social *social.Registry
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

const selectConnection = `
	SELECT id, influencer_id, platform, external_id, access_token, refresh_token, token_expiry, refresh_expiry
	FROM influencer_platforms`

func scanConnection(row interface{ Scan(...any) error }) (*Connection, error) {
	var (
		c                     Connection
		access, refresh       sql.NullString
		expiry, refreshExpiry sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.InfluencerID, &c.Platform, &c.ExternalID, &access, &refresh, &expiry, &refreshExpiry); err != nil {
		return nil, err
	}
	c.Token = social.Token{
		AccessToken:   access.String,
		RefreshToken:  refresh.String,
		Expiry:        expiry.Time,
		RefreshExpiry: refreshExpiry.Time,
		ExternalID:    c.ExternalID,
	}
	return &c, nil
}

// Get loads the connected platform of an influencer.
func (s *Service) Get(influencerID int64, platform string) (*Connection, error) {
	row := s.DB.QueryRow(selectConnection+` WHERE influencer_id = ? AND platform = ? AND connected = ?`, influencerID, platform, true)
	c, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, social.ErrNotConnected
	}
	return c, err
}

// Connected lists every connected platform.
func (s *Service) Connected(ctx context.Context) ([]*Connection, error) {
	rows, err := s.DB.QueryContext(ctx, selectConnection+` WHERE connected = ? ORDER BY id`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save stores tokens and stats for an influencer's platform, creating the row
// on first connect.
func (s *Service) Save(ctx context.Context, influencerID int64, platform string, tok *social.Token, p *social.Profile) error {
	now := s.now()
	engagement := metrics.EngagementRate(metrics.Stats{Followers: p.Followers, Likes: p.Likes, MediaCount: p.MediaCount})
	externalID := p.ExternalID
	if externalID == "" {
		externalID = tok.ExternalID
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE influencer_platforms
		SET handle = ?, external_id = ?, followers = ?, following = ?, likes = ?, media_count = ?,
			engagement_rate = ?, access_token = ?, refresh_token = ?, token_expiry = ?, refresh_expiry = ?,
			connected = ?, last_synced_at = ?, last_error = NULL
		WHERE influencer_id = ? AND platform = ?`,
		p.Handle, externalID, p.Followers, p.Following, p.Likes, p.MediaCount,
		engagement, tok.AccessToken, nullString(tok.RefreshToken), nullTime(tok.Expiry), nullTime(tok.RefreshExpiry),
		true, now, influencerID, platform)
	if err != nil {
		return fmt.Errorf("update platform: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO influencer_platforms
		(influencer_id, platform, handle, external_id, followers, following, likes, media_count,
		 engagement_rate, access_token, refresh_token, token_expiry, refresh_expiry, connected, last_synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		influencerID, platform, p.Handle, externalID, p.Followers, p.Following, p.Likes, p.MediaCount,
		engagement, tok.AccessToken, nullString(tok.RefreshToken), nullTime(tok.Expiry), nullTime(tok.RefreshExpiry),
		true, now)
	if err != nil {
		return fmt.Errorf("insert platform: %w", err)
	}
	return nil
}

// Refresh renews the token when it is close to expiry, pulls fresh stats and
// stores both. Failures are recorded on the row and returned.
func (s *Service) Refresh(ctx context.Context, c *Connection) error {
	err := s.refresh(ctx, c)
	if err != nil {
		if _, dbErr := s.DB.ExecContext(ctx, `UPDATE influencer_platforms SET last_error = ? WHERE id = ?`, err.Error(), c.ID); dbErr != nil {
			return errors.Join(err, dbErr)
		}
	}
	return err
}

func (s *Service) refresh(ctx context.Context, c *Connection) error {
	provider, err := s.Social.Get(c.Platform)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Platform, err)
	}

	tok := c.Token
	if tok.NeedsRefresh(s.now(), refreshLeeway) {
		next, err := provider.Refresh(ctx, &tok)
		if err != nil {
			return fmt.Errorf("refresh token: %w", err)
		}
		// Some platforms rotate refresh tokens, others never send one.
		if next.RefreshToken == "" {
			next.RefreshToken = tok.RefreshToken
			next.RefreshExpiry = tok.RefreshExpiry
		}
		tok = *next
	}

	profile, err := provider.Profile(ctx, &tok)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	return s.Save(ctx, c.InfluencerID, c.Platform, &tok, profile)
}

// Disconnect clears the stored tokens; stats are kept for history.
func (s *Service) Disconnect(influencerID int64, platform string) error {
	res, err := s.DB.Exec(`
		UPDATE influencer_platforms
		SET connected = ?, access_token = NULL, refresh_token = NULL, token_expiry = NULL, refresh_expiry = NULL
		WHERE influencer_id = ? AND platform = ? AND connected = ?`,
		false, influencerID, platform, true)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return social.ErrNotConnected
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
