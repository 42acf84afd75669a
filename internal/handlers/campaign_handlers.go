package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/collabhub-golang/internal/metrics"
	"github.com/01moynul/collabhub-golang/internal/models"
	"github.com/01moynul/collabhub-golang/internal/notify"
)

const selectCampaign = `
	SELECT c.id, c.brand_id, c.title, c.slug, c.description, c.platform, c.budget,
		c.start_date, c.end_date, c.status, c.created_at, c.updated_at, b.company_name
	FROM campaigns c
	JOIN brands b ON b.id = c.brand_id`

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	var cp models.Campaign
	err := row.Scan(&cp.ID, &cp.BrandID, &cp.Title, &cp.Slug, &cp.Description, &cp.Platform, &cp.Budget,
		&cp.StartDate, &cp.EndDate, &cp.Status, &cp.CreatedAt, &cp.UpdatedAt, &cp.BrandName)
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

// CampaignInput is the body of POST and PUT /v1/brand/campaigns.
type CampaignInput struct {
	Title       string          `json:"title" binding:"required,max=200"`
	Description string          `json:"description"`
	Platform    string          `json:"platform" binding:"omitempty,oneof=TIKTOK INSTAGRAM"`
	Budget      decimal.Decimal `json:"budget"`
	StartDate   time.Time       `json:"startDate" binding:"required"`
	EndDate     time.Time       `json:"endDate" binding:"required"`
	Status      string          `json:"status" binding:"omitempty,oneof=DRAFT ACTIVE"`
}

func (in *CampaignInput) validate() string {
	if !in.EndDate.After(in.StartDate) {
		return "End date must be after start date"
	}
	if in.Budget.IsNegative() {
		return "Budget cannot be negative"
	}
	return ""
}

// CreateCampaign is the handler for POST /v1/brand/campaigns
func (h *Handlers) CreateCampaign(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	if input.Status == "" {
		input.Status = models.CampaignDraft
	}

	brandID, ok := h.requireBrand(c)
	if !ok {
		return
	}

	// 2. --- Save to Database ---
	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	campaignSlug, err := uniqueSlug(tx, "campaigns", input.Title)
	if err != nil {
		h.serverError(c, "campaign slug", err)
		return
	}

	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO campaigns
		(brand_id, title, slug, description, platform, budget, start_date, end_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		brandID, input.Title, campaignSlug, optional(input.Description), optional(input.Platform), input.Budget,
		input.StartDate, input.EndDate, input.Status, now, now)
	if err != nil {
		h.serverError(c, "insert campaign", err)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		h.serverError(c, "campaign id", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit campaign", err)
		return
	}

	campaign, err := scanCampaign(h.DB.QueryRow(selectCampaign+" WHERE c.id = ?", id))
	if err != nil {
		h.serverError(c, "reload campaign", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "campaign": campaign})
}

// GetMyCampaigns is the handler for GET /v1/brand/campaigns
func (h *Handlers) GetMyCampaigns(c *gin.Context) {
	brandID, ok := h.requireBrand(c)
	if !ok {
		return
	}

	query := selectCampaign + " WHERE c.brand_id = ?"
	args := []any{brandID}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		query += " AND c.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	h.listCampaigns(c, query, args...)
}

func (h *Handlers) listCampaigns(c *gin.Context, query string, args ...any) {
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c, "list campaigns", err)
		return
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		cp, err := scanCampaign(rows)
		if err != nil {
			h.serverError(c, "scan campaign", err)
			return
		}
		campaigns = append(campaigns, cp)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate campaigns", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "campaigns": campaigns})
}

// ownCampaign loads campaign :id if it belongs to the calling brand.
func (h *Handlers) ownCampaign(c *gin.Context) (*models.Campaign, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	brandID, ok := h.requireBrand(c)
	if !ok {
		return nil, false
	}

	cp, err := scanCampaign(h.DB.QueryRow(selectCampaign+" WHERE c.id = ? AND c.brand_id = ?", id, brandID))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Campaign not found")
		return nil, false
	}
	if err != nil {
		h.serverError(c, "load campaign", err)
		return nil, false
	}
	return cp, true
}

// GetMyCampaign is the handler for GET /v1/brand/campaigns/:id
func (h *Handlers) GetMyCampaign(c *gin.Context) {
	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign": cp})
}

// UpdateCampaign is the handler for PUT /v1/brand/campaigns/:id
// Status changes go through UpdateCampaignStatus; the status field is ignored here.
func (h *Handlers) UpdateCampaign(c *gin.Context) {
	var input CampaignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}
	if !models.CampaignEditable(cp.Status) {
		fail(c, http.StatusConflict, fmt.Sprintf("A %s campaign can no longer be edited", strings.ToLower(cp.Status)))
		return
	}

	res, err := h.DB.Exec(`
		UPDATE campaigns
		SET title = ?, description = ?, platform = ?, budget = ?, start_date = ?, end_date = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		input.Title, optional(input.Description), optional(input.Platform), input.Budget,
		input.StartDate, input.EndDate, time.Now(), cp.ID, cp.Status)
	if err != nil {
		h.serverError(c, "update campaign", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusConflict, "Campaign changed while updating, reload and try again")
		return
	}

	cp, err = scanCampaign(h.DB.QueryRow(selectCampaign+" WHERE c.id = ?", cp.ID))
	if err != nil {
		h.serverError(c, "reload campaign", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "campaign": cp})
}

// CampaignStatusInput is the body of PATCH .../campaigns/:id/status.
type CampaignStatusInput struct {
	Status string `json:"status" binding:"required,oneof=DRAFT ACTIVE PAUSED COMPLETED CANCELLED"`
}

// UpdateCampaignStatus is the handler for PATCH /v1/brand/campaigns/:id/status
func (h *Handlers) UpdateCampaignStatus(c *gin.Context) {
	var input CampaignStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}

	if err := h.transitionCampaign(cp, input.Status, false, 0); err != nil {
		h.campaignTransitionError(c, cp, input.Status, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Campaign status updated", "status": input.Status})
}

var errStaleCampaign = errors.New("campaign status changed concurrently")
var errBadCampaignTransition = errors.New("campaign transition not allowed")

// transitionCampaign moves cp to status, using the admin rules when byAdmin is set.
// Ending a campaign withdraws its pending invitations. A non-zero notifyUserID gets
// a notification in the same transaction.
func (h *Handlers) transitionCampaign(cp *models.Campaign, status string, byAdmin bool, notifyUserID int64) error {
	allowed := models.CanTransitionCampaign
	if byAdmin {
		allowed = models.CanAdminTransitionCampaign
	}
	if !allowed(cp.Status, status) {
		return errBadCampaignTransition
	}

	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec("UPDATE campaigns SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		status, now, cp.ID, cp.Status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errStaleCampaign
	}

	if status == models.CampaignCompleted || status == models.CampaignCancelled {
		if _, err := tx.Exec(`UPDATE campaign_invitations SET status = ?, responded_at = ? WHERE campaign_id = ? AND status = ?`,
			models.InvitationWithdrawn, now, cp.ID, models.InvitationPending); err != nil {
			return err
		}
	}

	if notifyUserID != 0 {
		msg := fmt.Sprintf("An administrator set your campaign '%s' to %s.", cp.Title, strings.ToLower(status))
		if err := notify.Add(tx, notifyUserID, msg, fmt.Sprintf("/brand/campaigns/%d", cp.ID)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (h *Handlers) campaignTransitionError(c *gin.Context, cp *models.Campaign, status string, err error) {
	switch {
	case errors.Is(err, errBadCampaignTransition):
		fail(c, http.StatusConflict, fmt.Sprintf("Cannot change campaign status from %s to %s", cp.Status, status))
	case errors.Is(err, errStaleCampaign):
		fail(c, http.StatusConflict, "Campaign changed while updating, reload and try again")
	default:
		h.serverError(c, "update campaign status", err)
	}
}

// GetCampaignMetrics is the handler for GET /v1/brand/campaigns/:id/metrics
// It returns every snapshot plus a growth summary from each account's baseline.
func (h *Handlers) GetCampaignMetrics(c *gin.Context) {
	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, campaign_id, influencer_id, platform, followers, likes, media_count,
			followers_growth, likes_growth, growth_rate, captured_at
		FROM campaign_snapshots
		WHERE campaign_id = ?
		ORDER BY captured_at ASC, id ASC`, cp.ID)
	if err != nil {
		h.serverError(c, "list snapshots", err)
		return
	}
	defer rows.Close()

	type key struct {
		influencer int64
		platform   string
	}
	var (
		snapshots = []models.CampaignSnapshot{}
		points    = map[key]*metrics.Point{}
		order     []key
	)
	for rows.Next() {
		var s models.CampaignSnapshot
		if err := rows.Scan(&s.ID, &s.CampaignID, &s.InfluencerID, &s.Platform, &s.Followers, &s.Likes, &s.MediaCount,
			&s.FollowersGrowth, &s.LikesGrowth, &s.GrowthRate, &s.CapturedAt); err != nil {
			h.serverError(c, "scan snapshot", err)
			return
		}
		snapshots = append(snapshots, s)

		k := key{s.InfluencerID, s.Platform}
		stats := metrics.Stats{Followers: s.Followers, Likes: s.Likes, MediaCount: s.MediaCount}
		if p, seen := points[k]; seen {
			p.Latest = stats
		} else {
			points[k] = &metrics.Point{InfluencerID: s.InfluencerID, Baseline: stats, Latest: stats}
			order = append(order, k)
		}
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate snapshots", err)
		return
	}

	list := make([]metrics.Point, 0, len(order))
	for _, k := range order {
		list = append(list, *points[k])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"campaign":  cp,
		"summary":   metrics.Summarize(list),
		"snapshots": snapshots,
	})
}
