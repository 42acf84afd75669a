package middleware

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/collabhub-golang/internal/auth"
	"github.com/01moynul/collabhub-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
)

// AuthMiddleware validates the Bearer token and makes sure the user still
// exists and is not suspended. On success it stores the user ID and role in
// the gin context.
func AuthMiddleware(tokens *auth.TokenManager, db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid token format (must be Bearer)")
			return
		}

		// 2. --- Validate Token ---
		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// 3. --- Check Account Status ---
		// The role is re-read as well so a changed role takes effect before the token expires.
		var role, status string
		err = db.QueryRow("SELECT role, status FROM users WHERE id = ?", claims.UserID).Scan(&role, &status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				abort(c, http.StatusUnauthorized, "Invalid user")
				return
			}
			abort(c, http.StatusInternalServerError, "Database error checking user")
			return
		}
		if status == models.UserStatusSuspended {
			abort(c, http.StatusForbidden, "Your account has been suspended")
			return
		}

		// 4. --- Success ---
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
