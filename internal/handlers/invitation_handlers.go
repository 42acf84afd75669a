package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/models"
	"github.com/01moynul/collabhub-golang/internal/notify"
)

const selectInvitation = `
	SELECT ci.id, ci.campaign_id, ci.influencer_id, ci.message, ci.status, ci.responded_at, ci.created_at,
		c.title, i.display_name, b.company_name
	FROM campaign_invitations ci
	JOIN campaigns c ON c.id = ci.campaign_id
	JOIN brands b ON b.id = c.brand_id
	JOIN influencers i ON i.id = ci.influencer_id`

func scanInvitation(row interface{ Scan(...any) error }) (*models.CampaignInvitation, error) {
	var inv models.CampaignInvitation
	err := row.Scan(&inv.ID, &inv.CampaignID, &inv.InfluencerID, &inv.Message, &inv.Status, &inv.RespondedAt, &inv.CreatedAt,
		&inv.CampaignTitle, &inv.InfluencerName, &inv.BrandName)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (h *Handlers) listInvitations(c *gin.Context, query string, args ...any) {
	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c, "list invitations", err)
		return
	}
	defer rows.Close()

	invitations := []*models.CampaignInvitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			h.serverError(c, "scan invitation", err)
			return
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate invitations", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "invitations": invitations})
}

// InviteInput is the body of POST /v1/brand/campaigns/:id/invitations.
type InviteInput struct {
	InfluencerID int64  `json:"influencerId" binding:"required,gt=0"`
	Message      string `json:"message" binding:"max=1000"`
}

// InviteInfluencer is the handler for POST /v1/brand/campaigns/:id/invitations
func (h *Handlers) InviteInfluencer(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input InviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	// 2. --- Campaign must be ours and still open ---
	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}
	if !models.CampaignEditable(cp.Status) {
		fail(c, http.StatusConflict, "Cannot invite influencers to a campaign that has ended")
		return
	}

	// 3. --- Influencer must exist ---
	var (
		infUserID int64
		infEmail  string
	)
	err := h.DB.QueryRow(`
		SELECT u.id, u.email FROM influencers i JOIN users u ON u.id = i.user_id
		WHERE i.id = ? AND u.status = ?`, input.InfluencerID, models.UserStatusActive,
	).Scan(&infUserID, &infEmail)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Influencer not found")
		return
	}
	if err != nil {
		h.serverError(c, "load influencer", err)
		return
	}

	// 4. --- Save invitation + notification ---
	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRow("SELECT COUNT(*) FROM campaign_invitations WHERE campaign_id = ? AND influencer_id = ?",
		cp.ID, input.InfluencerID).Scan(&existing); err != nil {
		h.serverError(c, "check invitation", err)
		return
	}
	if existing > 0 {
		fail(c, http.StatusConflict, "This influencer has already been invited to the campaign")
		return
	}

	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO campaign_invitations (campaign_id, influencer_id, message, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		cp.ID, input.InfluencerID, optional(input.Message), models.InvitationPending, now)
	if err != nil {
		h.serverError(c, "insert invitation", err)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		h.serverError(c, "invitation id", err)
		return
	}

	msg := fmt.Sprintf("%s invited you to the campaign '%s'.", cp.BrandName, cp.Title)
	if err := notify.Add(tx, infUserID, msg, "/influencer/invitations"); err != nil {
		h.serverError(c, "notify influencer", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit invitation", err)
		return
	}

	h.sendEmail(c.Request.Context(), email.InvitationEmail(infEmail, cp.BrandName, cp.Title))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"invitation": models.CampaignInvitation{
			ID:            id,
			CampaignID:    cp.ID,
			InfluencerID:  input.InfluencerID,
			Message:       optional(input.Message),
			Status:        models.InvitationPending,
			CreatedAt:     now,
			CampaignTitle: cp.Title,
			BrandName:     cp.BrandName,
		},
	})
}

// GetCampaignInvitations is the handler for GET /v1/brand/campaigns/:id/invitations
func (h *Handlers) GetCampaignInvitations(c *gin.Context) {
	cp, ok := h.ownCampaign(c)
	if !ok {
		return
	}
	h.listInvitations(c, selectInvitation+" WHERE ci.campaign_id = ? ORDER BY ci.created_at DESC, ci.id DESC", cp.ID)
}

// WithdrawInvitation is the handler for DELETE /v1/brand/invitations/:id
// Only pending invitations can be withdrawn; the row is kept as WITHDRAWN.
func (h *Handlers) WithdrawInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	brandID, ok := h.requireBrand(c)
	if !ok {
		return
	}

	inv, err := scanInvitation(h.DB.QueryRow(selectInvitation+" WHERE ci.id = ? AND c.brand_id = ?", id, brandID))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Invitation not found")
		return
	}
	if err != nil {
		h.serverError(c, "load invitation", err)
		return
	}

	res, err := h.DB.Exec("UPDATE campaign_invitations SET status = ?, responded_at = ? WHERE id = ? AND status = ?",
		models.InvitationWithdrawn, time.Now(), inv.ID, models.InvitationPending)
	if err != nil {
		h.serverError(c, "withdraw invitation", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusConflict, "Only pending invitations can be withdrawn")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invitation withdrawn"})
}

// GetMyInvitations is the handler for GET /v1/influencer/invitations
func (h *Handlers) GetMyInvitations(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	query := selectInvitation + " WHERE ci.influencer_id = ?"
	args := []any{infID}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		query += " AND ci.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY ci.created_at DESC, ci.id DESC"

	h.listInvitations(c, query, args...)
}

// RespondInvitationInput is the body of PATCH /v1/influencer/invitations/:id.
type RespondInvitationInput struct {
	Action string `json:"action" binding:"required,oneof=accept decline"`
}

// RespondToInvitation is the handler for PATCH /v1/influencer/invitations/:id
func (h *Handlers) RespondToInvitation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input RespondInvitationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	// 1. --- Load invitation with its campaign ---
	inv, err := scanInvitation(h.DB.QueryRow(selectInvitation+" WHERE ci.id = ? AND ci.influencer_id = ?", id, infID))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Invitation not found")
		return
	}
	if err != nil {
		h.serverError(c, "load invitation", err)
		return
	}
	var (
		campaignSt  string
		brandUserID int64
	)
	if err := h.DB.QueryRow(`
		SELECT c.status, b.user_id FROM campaigns c JOIN brands b ON b.id = c.brand_id WHERE c.id = ?`,
		inv.CampaignID).Scan(&campaignSt, &brandUserID); err != nil {
		h.serverError(c, "load campaign", err)
		return
	}

	status := models.InvitationDeclined
	if input.Action == "accept" {
		status = models.InvitationAccepted
		if !models.CampaignEditable(campaignSt) {
			fail(c, http.StatusConflict, "This campaign has ended")
			return
		}
	}

	// 2. --- Guarded update + notify brand ---
	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE campaign_invitations SET status = ?, responded_at = ? WHERE id = ? AND status = ?",
		status, time.Now(), inv.ID, models.InvitationPending)
	if err != nil {
		h.serverError(c, "respond to invitation", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusConflict, "This invitation has already been answered")
		return
	}

	msg := fmt.Sprintf("%s %s your invitation to '%s'.", inv.InfluencerName, strings.ToLower(status), inv.CampaignTitle)
	if err := notify.Add(tx, brandUserID, msg, fmt.Sprintf("/brand/campaigns/%d", inv.CampaignID)); err != nil {
		h.serverError(c, "notify brand", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit invitation response", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Invitation " + strings.ToLower(status), "status": status})
}
