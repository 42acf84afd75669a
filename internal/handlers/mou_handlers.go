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
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/approval"
	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/models"
	"github.com/01moynul/collabhub-golang/internal/notify"
)

const selectMOU = `
	SELECT m.id, m.campaign_id, m.brand_id, m.influencer_id, m.title, m.deliverables, m.amount, m.currency,
		m.start_date, m.end_date, m.document_url, m.brand_approval, m.influencer_approval, m.admin_approval,
		m.status, m.rejection_reason, m.created_at, m.updated_at,
		c.title, b.company_name, i.display_name
	FROM mous m
	JOIN campaigns c ON c.id = m.campaign_id
	JOIN brands b ON b.id = m.brand_id
	JOIN influencers i ON i.id = m.influencer_id`

func scanMOU(row interface{ Scan(...any) error }) (*models.MOU, error) {
	var m models.MOU
	err := row.Scan(&m.ID, &m.CampaignID, &m.BrandID, &m.InfluencerID, &m.Title, &m.Deliverables, &m.Amount, &m.Currency,
		&m.StartDate, &m.EndDate, &m.DocumentURL, &m.BrandApproval, &m.InfluencerApproval, &m.AdminApproval,
		&m.Status, &m.RejectionReason, &m.CreatedAt, &m.UpdatedAt,
		&m.CampaignTitle, &m.BrandName, &m.InfluencerName)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// mouParties are the user accounts behind an MOU's brand and influencer.
type mouParties struct {
	BrandUserID      int64
	BrandEmail       string
	InfluencerUserID int64
	InfluencerEmail  string
}

func (h *Handlers) loadMOUParties(m *models.MOU) (*mouParties, error) {
	var p mouParties
	err := h.DB.QueryRow(`
		SELECT bu.id, bu.email, iu.id, iu.email
		FROM brands b, influencers i, users bu, users iu
		WHERE b.id = ? AND i.id = ? AND bu.id = b.user_id AND iu.id = i.user_id`,
		m.BrandID, m.InfluencerID,
	).Scan(&p.BrandUserID, &p.BrandEmail, &p.InfluencerUserID, &p.InfluencerEmail)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// partyOf decides in which capacity the caller acts on m.
func (p *mouParties) partyOf(userID int64, role string) (approval.Party, error) {
	switch {
	case role == models.RoleAdmin:
		return approval.Admin, nil
	case role == models.RoleBrand && userID == p.BrandUserID:
		return approval.Brand, nil
	case role == models.RoleInfluencer && userID == p.InfluencerUserID:
		return approval.Influencer, nil
	}
	return "", approval.ErrNotParty
}

func (h *Handlers) listMOUs(c *gin.Context, query string, args ...any) {
	if status := strings.ToUpper(c.Query("status")); status != "" {
		if strings.Contains(query, " WHERE ") {
			query += " AND m.status = ?"
		} else {
			query += " WHERE m.status = ?"
		}
		args = append(args, status)
	}
	query += " ORDER BY m.created_at DESC, m.id DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c, "list mous", err)
		return
	}
	defer rows.Close()

	mous := []*models.MOU{}
	for rows.Next() {
		m, err := scanMOU(rows)
		if err != nil {
			h.serverError(c, "scan mou", err)
			return
		}
		mous = append(mous, m)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate mous", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "mous": mous})
}

// CreateMOUInput is the body of POST /v1/brand/mous.
type CreateMOUInput struct {
	CampaignID   int64           `json:"campaignId" binding:"required,gt=0"`
	InfluencerID int64           `json:"influencerId" binding:"required,gt=0"`
	Title        string          `json:"title" binding:"required,max=200"`
	Deliverables string          `json:"deliverables" binding:"required"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" binding:"omitempty,len=3,alpha"`
	StartDate    time.Time       `json:"startDate" binding:"required"`
	EndDate      time.Time       `json:"endDate" binding:"required"`
	DocumentURL  string          `json:"documentUrl" binding:"omitempty,url"`
}

// CreateMOU is the handler for POST /v1/brand/mous
// The influencer must have accepted the campaign invitation, and only one
// live (pending or approved) MOU may exist per campaign and influencer.
func (h *Handlers) CreateMOU(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateMOUInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !input.Amount.IsPositive() {
		fail(c, http.StatusBadRequest, "Amount must be greater than zero")
		return
	}
	if !input.EndDate.After(input.StartDate) {
		fail(c, http.StatusBadRequest, "End date must be after start date")
		return
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	input.Currency = strings.ToUpper(input.Currency)

	brandID, ok := h.requireBrand(c)
	if !ok {
		return
	}

	// 2. --- Campaign ownership and accepted invitation ---
	var campaignTitle, campaignStatus string
	err := h.DB.QueryRow(`
		SELECT c.title, c.status FROM campaigns c
		JOIN campaign_invitations ci ON ci.campaign_id = c.id
		WHERE c.id = ? AND c.brand_id = ? AND ci.influencer_id = ? AND ci.status = ?`,
		input.CampaignID, brandID, input.InfluencerID, models.InvitationAccepted,
	).Scan(&campaignTitle, &campaignStatus)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusConflict, "The influencer has not accepted an invitation to this campaign")
		return
	}
	if err != nil {
		h.serverError(c, "check invitation", err)
		return
	}
	if !models.CampaignEditable(campaignStatus) {
		fail(c, http.StatusConflict, "Cannot create an MOU for a campaign that has ended")
		return
	}

	var infUserID int64
	if err := h.DB.QueryRow("SELECT user_id FROM influencers WHERE id = ?", input.InfluencerID).Scan(&infUserID); err != nil {
		h.serverError(c, "load influencer", err)
		return
	}

	// 3. --- Save MOU + notification ---
	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	var live int
	if err := tx.QueryRow("SELECT COUNT(*) FROM mous WHERE campaign_id = ? AND influencer_id = ? AND status <> ?",
		input.CampaignID, input.InfluencerID, approval.Rejected).Scan(&live); err != nil {
		h.serverError(c, "check existing mou", err)
		return
	}
	if live > 0 {
		fail(c, http.StatusConflict, "An MOU for this campaign and influencer already exists")
		return
	}

	now := time.Now()
	res, err := tx.Exec(`
		INSERT INTO mous
		(campaign_id, brand_id, influencer_id, title, deliverables, amount, currency, start_date, end_date, document_url,
		 brand_approval, influencer_approval, admin_approval, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.CampaignID, brandID, input.InfluencerID, input.Title, input.Deliverables, input.Amount, input.Currency,
		input.StartDate, input.EndDate, optional(input.DocumentURL),
		approval.Pending, approval.Pending, approval.Pending, approval.Pending, now, now)
	if err != nil {
		h.serverError(c, "insert mou", err)
		return
	}
	id, err := res.LastInsertId()
	if err != nil {
		h.serverError(c, "mou id", err)
		return
	}

	msg := fmt.Sprintf("A new MOU '%s' for campaign '%s' is waiting for your review.", input.Title, campaignTitle)
	if err := notify.Add(tx, infUserID, msg, fmt.Sprintf("/mous/%d", id)); err != nil {
		h.serverError(c, "notify influencer", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit mou", err)
		return
	}

	m, err := scanMOU(h.DB.QueryRow(selectMOU+" WHERE m.id = ?", id))
	if err != nil {
		h.serverError(c, "reload mou", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "mou": m})
}

// GetBrandMOUs is the handler for GET /v1/brand/mous
func (h *Handlers) GetBrandMOUs(c *gin.Context) {
	brandID, ok := h.requireBrand(c)
	if !ok {
		return
	}
	h.listMOUs(c, selectMOU+" WHERE m.brand_id = ?", brandID)
}

// GetInfluencerMOUs is the handler for GET /v1/influencer/mous
func (h *Handlers) GetInfluencerMOUs(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}
	h.listMOUs(c, selectMOU+" WHERE m.influencer_id = ?", infID)
}

// GetAdminMOUs is the handler for GET /v1/admin/mous
func (h *Handlers) GetAdminMOUs(c *gin.Context) {
	h.listMOUs(c, selectMOU)
}

// visibleMOU loads MOU :id and the caller's party. Non-parties get a 404.
func (h *Handlers) visibleMOU(c *gin.Context) (*models.MOU, *mouParties, approval.Party, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, nil, "", false
	}

	m, err := scanMOU(h.DB.QueryRow(selectMOU+" WHERE m.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "MOU not found")
		return nil, nil, "", false
	}
	if err != nil {
		h.serverError(c, "load mou", err)
		return nil, nil, "", false
	}

	parties, err := h.loadMOUParties(m)
	if err != nil {
		h.serverError(c, "load mou parties", err)
		return nil, nil, "", false
	}

	userID, role := currentUser(c)
	party, err := parties.partyOf(userID, role)
	if err != nil {
		fail(c, http.StatusNotFound, "MOU not found")
		return nil, nil, "", false
	}
	return m, parties, party, true
}

// GetMOU is the handler for GET /v1/mous/:id
func (h *Handlers) GetMOU(c *gin.Context) {
	m, _, _, ok := h.visibleMOU(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mou": m})
}

// MOUDecisionInput is the body of PATCH /v1/mous/:id/decision.
type MOUDecisionInput struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	Reason   string `json:"reason" binding:"max=1000"`
}

// DecideMOU is the handler for PATCH /v1/mous/:id/decision
// The caller's party follows from role and ownership. Each party decides
// once; the admin may approve only after brand and influencer have.
func (h *Handlers) DecideMOU(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input MOUDecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	input.Reason = strings.TrimSpace(input.Reason)

	m, parties, party, ok := h.visibleMOU(c)
	if !ok {
		return
	}

	// 2. --- Apply the approval rules ---
	state := approval.State{Brand: m.BrandApproval, Influencer: m.InfluencerApproval, Admin: m.AdminApproval}
	next, err := state.Apply(party, input.Decision, input.Reason)
	if err != nil {
		h.decisionError(c, err)
		return
	}
	status := next.Status()

	// Approvals need a live campaign; rejections are still allowed so ended MOUs can be closed.
	approving := input.Decision == approval.Approved
	if approving {
		var campaignStatus string
		if err := h.DB.QueryRow("SELECT status FROM campaigns WHERE id = ?", m.CampaignID).Scan(&campaignStatus); err != nil {
			h.serverError(c, "load campaign", err)
			return
		}
		if !models.CampaignEditable(campaignStatus) {
			fail(c, http.StatusConflict, "The campaign has ended, this MOU can only be rejected")
			return
		}
	}

	// 3. --- Guarded update ---
	// The party's own field and the aggregate must still be pending, so of two
	// concurrent decisions only one lands. Admin approval also re-checks the
	// parties' approvals.
	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	col := approval.Column(party)
	query := `UPDATE mous SET ` + col + ` = ?, status = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND ` + col + ` = ? AND status = ?`
	var reason *string
	if input.Decision == approval.Rejected {
		reason = &input.Reason
	} else {
		reason = m.RejectionReason
	}
	args := []any{input.Decision, status, reason, time.Now(), m.ID, approval.Pending, approval.Pending}
	if party == approval.Admin && approving {
		query += " AND brand_approval = ? AND influencer_approval = ?"
		args = append(args, approval.Approved, approval.Approved)
	}
	if approving {
		query += " AND EXISTS (SELECT 1 FROM campaigns c WHERE c.id = mous.campaign_id AND c.status IN (?, ?, ?))"
		args = append(args, models.CampaignDraft, models.CampaignActive, models.CampaignPaused)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		h.serverError(c, "update mou decision", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusConflict, "This MOU changed while you were deciding, reload and try again")
		return
	}

	// The other party may have decided concurrently; notify from the row as written.
	var after approval.State
	if err := tx.QueryRow("SELECT brand_approval, influencer_approval, admin_approval FROM mous WHERE id = ?", m.ID).
		Scan(&after.Brand, &after.Influencer, &after.Admin); err != nil {
		h.serverError(c, "reload mou decision", err)
		return
	}

	// 4. --- Notify ---
	if err := h.notifyDecision(tx, m, parties, party, input.Decision, status, after); err != nil {
		h.serverError(c, "notify mou decision", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit mou decision", err)
		return
	}

	if status != approval.Pending {
		ctx := c.Request.Context()
		h.sendEmail(ctx, email.MOUOutcomeEmail(parties.BrandEmail, m.Title, status, input.Reason))
		h.sendEmail(ctx, email.MOUOutcomeEmail(parties.InfluencerEmail, m.Title, status, input.Reason))
	}

	h.logger().Info("mou decision",
		zap.Int64("mou_id", m.ID),
		zap.String("party", string(party)),
		zap.String("decision", input.Decision),
		zap.String("status", status))

	updated, err := scanMOU(h.DB.QueryRow(selectMOU+" WHERE m.id = ?", m.ID))
	if err != nil {
		h.serverError(c, "reload mou", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "mou": updated})
}

func (h *Handlers) decisionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, approval.ErrInvalidDecision), errors.Is(err, approval.ErrReasonRequired):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, approval.ErrNotParty):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, approval.ErrInvalidTransition),
		errors.Is(err, approval.ErrClosed),
		errors.Is(err, approval.ErrAwaitingParties):
		fail(c, http.StatusConflict, err.Error())
	default:
		h.serverError(c, "mou decision", err)
	}
}

// notifyDecision tells everyone else involved about a decision. When brand
// and influencer have both approved, admins are asked to review.
func (h *Handlers) notifyDecision(tx *sql.Tx, m *models.MOU, p *mouParties, by approval.Party, decision, status string, after approval.State) error {
	link := fmt.Sprintf("/mous/%d", m.ID)
	who := map[approval.Party]string{
		approval.Brand:      m.BrandName,
		approval.Influencer: m.InfluencerName,
		approval.Admin:      "An administrator",
	}[by]
	msg := fmt.Sprintf("%s %s the MOU '%s'.", who, strings.ToLower(decision), m.Title)
	if status != approval.Pending {
		msg += fmt.Sprintf(" The MOU is now %s.", strings.ToLower(status))
	}

	if by != approval.Brand {
		if err := notify.Add(tx, p.BrandUserID, msg, link); err != nil {
			return err
		}
	}
	if by != approval.Influencer {
		if err := notify.Add(tx, p.InfluencerUserID, msg, link); err != nil {
			return err
		}
	}

	if after.Status() == approval.Pending && after.Brand == approval.Approved && after.Influencer == approval.Approved {
		rows, err := tx.Query("SELECT id FROM users WHERE role = ? AND status = ?", models.RoleAdmin, models.UserStatusActive)
		if err != nil {
			return err
		}
		var admins []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			admins = append(admins, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		review := fmt.Sprintf("The MOU '%s' was approved by both parties and awaits admin review.", m.Title)
		for _, id := range admins {
			if err := notify.Add(tx, id, review, "/admin/mous"); err != nil {
				return err
			}
		}
	}
	return nil
}

// UploadMOUDocument is the handler for POST /v1/mous/:id/document
// Brand, influencer or admin may attach the signed document while the MOU is pending.
func (h *Handlers) UploadMOUDocument(c *gin.Context) {
	m, _, _, ok := h.visibleMOU(c)
	if !ok {
		return
	}
	if m.Status != approval.Pending {
		fail(c, http.StatusConflict, "The MOU is no longer pending")
		return
	}

	url, ok := h.saveUpload(c)
	if !ok {
		return
	}

	res, err := h.DB.Exec("UPDATE mous SET document_url = ?, updated_at = ? WHERE id = ? AND status = ?",
		url, time.Now(), m.ID, approval.Pending)
	if err != nil {
		h.serverError(c, "store mou document", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusConflict, "The MOU is no longer pending")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "documentUrl": url})
}
