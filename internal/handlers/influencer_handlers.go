package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/models"
)

const selectInfluencer = `
	SELECT i.id, i.user_id, i.display_name, i.bio, i.niche, i.location, i.avatar_url, i.created_at, i.updated_at,
		COALESCE((SELECT SUM(p.followers) FROM influencer_platforms p WHERE p.influencer_id = i.id AND p.connected = ?), 0)
	FROM influencers i
	JOIN users u ON u.id = i.user_id`

func scanInfluencer(row interface{ Scan(...any) error }) (*models.Influencer, error) {
	var inf models.Influencer
	err := row.Scan(&inf.ID, &inf.UserID, &inf.DisplayName, &inf.Bio, &inf.Niche, &inf.Location, &inf.AvatarURL,
		&inf.CreatedAt, &inf.UpdatedAt, &inf.TotalFollowers)
	if err != nil {
		return nil, err
	}
	return &inf, nil
}

// loadInfluencer returns the profile with its platforms and rate cards.
func (h *Handlers) loadInfluencer(where string, args ...any) (*models.Influencer, error) {
	inf, err := scanInfluencer(h.DB.QueryRow(selectInfluencer+" WHERE "+where, append([]any{true}, args...)...))
	if err != nil {
		return nil, err
	}
	if inf.Platforms, err = listPlatforms(h.DB, inf.ID); err != nil {
		return nil, err
	}
	if inf.RateCards, err = listRateCards(h.DB, inf.ID); err != nil {
		return nil, err
	}
	return inf, nil
}

func listPlatforms(q database.Querier, influencerID int64) ([]models.InfluencerPlatform, error) {
	rows, err := q.Query(`
		SELECT id, influencer_id, platform, handle, followers, following, likes, media_count,
			engagement_rate, connected, last_synced_at, last_error
		FROM influencer_platforms
		WHERE influencer_id = ?
		ORDER BY platform`, influencerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	platforms := []models.InfluencerPlatform{}
	for rows.Next() {
		var p models.InfluencerPlatform
		if err := rows.Scan(&p.ID, &p.InfluencerID, &p.Platform, &p.Handle, &p.Followers, &p.Following, &p.Likes,
			&p.MediaCount, &p.EngagementRate, &p.Connected, &p.LastSyncedAt, &p.LastError); err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// GetInfluencerProfile is the handler for GET /v1/influencer/profile
func (h *Handlers) GetInfluencerProfile(c *gin.Context) {
	userID, _ := currentUser(c)

	inf, err := h.loadInfluencer("i.user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Influencer profile not found")
		return
	}
	if err != nil {
		h.serverError(c, "load influencer profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "influencer": inf})
}

// UpdateInfluencerProfileInput is the body of PUT /v1/influencer/profile.
type UpdateInfluencerProfileInput struct {
	DisplayName string `json:"displayName" binding:"required"`
	Bio         string `json:"bio" binding:"max=2000"`
	Niche       string `json:"niche"`
	Location    string `json:"location"`
	AvatarURL   string `json:"avatarUrl" binding:"omitempty,url"`
}

// UpdateInfluencerProfile is the handler for PUT /v1/influencer/profile
func (h *Handlers) UpdateInfluencerProfile(c *gin.Context) {
	var input UpdateInfluencerProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := currentUser(c)

	res, err := h.DB.Exec(`
		UPDATE influencers
		SET display_name = ?, bio = ?, niche = ?, location = ?, avatar_url = ?, updated_at = ?
		WHERE user_id = ?`,
		input.DisplayName, optional(input.Bio), optional(input.Niche), optional(input.Location),
		optional(input.AvatarURL), time.Now(), userID)
	if err != nil {
		h.serverError(c, "update influencer profile", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "Influencer profile not found")
		return
	}

	h.GetInfluencerProfile(c)
}

// GetMyPlatforms is the handler for GET /v1/influencer/platforms
func (h *Handlers) GetMyPlatforms(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	platforms, err := listPlatforms(h.DB, infID)
	if err != nil {
		h.serverError(c, "list platforms", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "platforms": platforms})
}

// SearchInfluencers is the handler for GET /v1/influencers
// Filters: niche, platform, min_followers, q (name or bio), limit, offset.
func (h *Handlers) SearchInfluencers(c *gin.Context) {
	// 1. --- Build the filter ---
	// Suspended and unverified accounts are not discoverable.
	var (
		where = []string{"u.status = ?"}
		args  = []any{true, models.UserStatusActive}
	)
	if niche := strings.TrimSpace(c.Query("niche")); niche != "" {
		where = append(where, "i.niche = ?")
		args = append(args, niche)
	}
	if platform := strings.ToUpper(c.Query("platform")); platform != "" {
		if !models.ValidPlatform(platform) {
			fail(c, http.StatusBadRequest, "Unsupported platform")
			return
		}
		where = append(where, "EXISTS (SELECT 1 FROM influencer_platforms p WHERE p.influencer_id = i.id AND p.platform = ? AND p.connected = ?)")
		args = append(args, platform, true)
	}
	if minFollowers := queryInt(c, "min_followers", 0, 0); minFollowers > 0 {
		where = append(where, "(SELECT COALESCE(SUM(p.followers), 0) FROM influencer_platforms p WHERE p.influencer_id = i.id AND p.connected = ?) >= ?")
		args = append(args, true, minFollowers)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		where = append(where, "(LOWER(i.display_name) LIKE ? OR LOWER(i.bio) LIKE ?)")
		like := "%" + strings.ToLower(q) + "%"
		args = append(args, like, like)
	}

	query := selectInfluencer + " WHERE " + strings.Join(where, " AND ")
	query += " ORDER BY i.display_name ASC LIMIT ? OFFSET ?"
	limit := queryInt(c, "limit", 20, 100)
	offset := queryInt(c, "offset", 0, 0)
	args = append(args, limit, offset)

	// 2. --- Query Database ---
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c, "search influencers", err)
		return
	}
	defer rows.Close()

	// 3. --- Scan Rows into Slice ---
	influencers := []*models.Influencer{}
	for rows.Next() {
		inf, err := scanInfluencer(rows)
		if err != nil {
			h.serverError(c, "scan influencer", err)
			return
		}
		influencers = append(influencers, inf)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate influencers", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"influencers": influencers,
		"limit":       limit,
		"offset":      offset,
	})
}

// GetInfluencer is the handler for GET /v1/influencers/:id
func (h *Handlers) GetInfluencer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	inf, err := h.loadInfluencer("i.id = ? AND u.status = ?", id, models.UserStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Influencer not found")
		return
	}
	if err != nil {
		h.serverError(c, "load influencer", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "influencer": inf})
}
