package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/models"
)

//
// --- Notification Handlers ---
//

// GetMyNotifications is the handler for GET /v1/notifications
// Unread first, then newest first, at most 50.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID, _ := currentUser(c)

	query := `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC, id DESC
		LIMIT 50`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		h.serverError(c, "list notifications", err)
		return
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		var notif models.Notification
		if err := rows.Scan(&notif.ID, &notif.UserID, &notif.Message, &notif.Link, &notif.IsRead, &notif.CreatedAt); err != nil {
			h.serverError(c, "scan notification", err)
			return
		}
		notifications = append(notifications, &notif)
	}
	if err := rows.Err(); err != nil {
		h.serverError(c, "iterate notifications", err)
		return
	}

	var unread int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?", userID, false).Scan(&unread); err != nil {
		h.serverError(c, "count unread notifications", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
		"unread":        unread,
	})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
// Only the owner's notification is touched.
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, _ := currentUser(c)

	result, err := h.DB.Exec("UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?", true, id, userID)
	if err != nil {
		h.serverError(c, "mark notification read", err)
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "Notification not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}

// MarkAllNotificationsAsRead is the handler for PATCH /v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsAsRead(c *gin.Context) {
	userID, _ := currentUser(c)

	result, err := h.DB.Exec("UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?", true, userID, false)
	if err != nil {
		h.serverError(c, "mark all notifications read", err)
		return
	}
	n, _ := result.RowsAffected()

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}
