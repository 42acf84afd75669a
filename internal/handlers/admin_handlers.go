package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/jobs"
	"github.com/01moynul/collabhub-golang/internal/models"
)

//
// --- Users ---
//

// GetUsers is the handler for GET /v1/admin/users
// Optional filters: role, status. Paged with limit/offset.
func (h *Handlers) GetUsers(c *gin.Context) {
	query := `
		SELECT id, role, status, email, full_name, created_at, updated_at
		FROM users WHERE 1 = 1`
	var args []any
	if role := strings.ToUpper(c.Query("role")); role != "" {
		query += " AND role = ?"
		args = append(args, role)
	}
	if status := strings.ToUpper(c.Query("status")); status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, queryInt(c, "limit", 50, 200), queryInt(c, "offset", 0, 0))

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c, "list users", err)
		return
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Role, &u.Status, &u.Email, &u.FullName, &u.CreatedAt, &u.UpdatedAt); err != nil {
			h.serverError(c, "scan user", err)
			return
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate users", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
}

// UserStatusInput is the body of PATCH /v1/admin/users/:id/status.
type UserStatusInput struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE SUSPENDED"`
}

// UpdateUserStatus is the handler for PATCH /v1/admin/users/:id/status
// Suspension takes effect on the user's next request.
func (h *Handlers) UpdateUserStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input UserStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	adminID, _ := currentUser(c)
	if id == adminID {
		fail(c, http.StatusBadRequest, "You cannot change your own status")
		return
	}

	result, err := h.DB.Exec("UPDATE users SET status = ?, updated_at = ? WHERE id = ?", input.Status, time.Now(), id)
	if err != nil {
		h.serverError(c, "update user status", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "User not found")
		return
	}

	h.logger().Info("user status changed", zap.Int64("user_id", id), zap.String("status", input.Status), zap.Int64("by", adminID))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User status updated", "status": input.Status})
}

//
// --- Campaigns ---
//

// GetAdminCampaigns is the handler for GET /v1/admin/campaigns
func (h *Handlers) GetAdminCampaigns(c *gin.Context) {
	query := selectCampaign
	var args []any
	if status := strings.ToUpper(c.Query("status")); status != "" {
		query += " WHERE c.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY c.created_at DESC, c.id DESC"

	h.listCampaigns(c, query, args...)
}

// AdminCampaignStatusInput is the body of PATCH /v1/admin/campaigns/:id/status.
type AdminCampaignStatusInput struct {
	Status string `json:"status" binding:"required,oneof=PAUSED CANCELLED"`
}

// AdminUpdateCampaignStatus is the handler for PATCH /v1/admin/campaigns/:id/status
// Admins can pause or cancel any campaign; the owning brand is notified.
func (h *Handlers) AdminUpdateCampaignStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input AdminCampaignStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	cp, err := scanCampaign(h.DB.QueryRow(selectCampaign+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		h.serverError(c, "load campaign", err)
		return
	}

	var brandUserID int64
	if err := h.DB.QueryRow("SELECT user_id FROM brands WHERE id = ?", cp.BrandID).Scan(&brandUserID); err != nil {
		h.serverError(c, "load brand", err)
		return
	}

	if err := h.transitionCampaign(cp, input.Status, true, brandUserID); err != nil {
		h.campaignTransitionError(c, cp, input.Status, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Campaign status updated", "status": input.Status})
}

//
// --- Jobs ---
//

// RunJob is the handler for POST /v1/admin/jobs/:name
// The job runs synchronously and its report is returned.
func (h *Handlers) RunJob(c *gin.Context) {
	if h.Jobs == nil {
		fail(c, http.StatusServiceUnavailable, "Jobs are not configured")
		return
	}

	report, err := h.Jobs.Run(c.Request.Context(), c.Param("name"))
	if errors.Is(err, jobs.ErrUnknownJob) {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.serverError(c, "run job", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
