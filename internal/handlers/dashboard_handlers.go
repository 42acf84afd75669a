package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/approval"
	"github.com/01moynul/collabhub-golang/internal/models"
)

// AdminStats is the body of GET /v1/admin/dashboard-stats.
type AdminStats struct {
	Brands             int `json:"brands"`
	Influencers        int `json:"influencers"`
	SuspendedUsers     int `json:"suspendedUsers"`
	ActiveCampaigns    int `json:"activeCampaigns"`
	PendingMOUs        int `json:"pendingMous"`
	AwaitingAdmin      int `json:"awaitingAdmin"` // both parties approved
	PendingInvitations int `json:"pendingInvitations"`
}

// GetAdminStats returns KPI data for the admin dashboard
// GET /v1/admin/dashboard-stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	stats := AdminStats{}

	counts := []struct {
		dest  *int
		query string
		args  []any
	}{
		{&stats.Brands, "SELECT COUNT(*) FROM users WHERE role = ?", []any{models.RoleBrand}},
		{&stats.Influencers, "SELECT COUNT(*) FROM users WHERE role = ?", []any{models.RoleInfluencer}},
		{&stats.SuspendedUsers, "SELECT COUNT(*) FROM users WHERE status = ?", []any{models.UserStatusSuspended}},
		{&stats.ActiveCampaigns, "SELECT COUNT(*) FROM campaigns WHERE status = ?", []any{models.CampaignActive}},
		{&stats.PendingMOUs, "SELECT COUNT(*) FROM mous WHERE status = ?", []any{approval.Pending}},
		{&stats.AwaitingAdmin, "SELECT COUNT(*) FROM mous WHERE status = ? AND brand_approval = ? AND influencer_approval = ?",
			[]any{approval.Pending, approval.Approved, approval.Approved}},
		{&stats.PendingInvitations, "SELECT COUNT(*) FROM campaign_invitations WHERE status = ?", []any{models.InvitationPending}},
	}

	for _, q := range counts {
		if err := h.DB.QueryRow(q.query, q.args...).Scan(q.dest); err != nil {
			h.serverError(c, "dashboard count", err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}
