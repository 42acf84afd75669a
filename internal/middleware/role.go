package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//
// --- Role-Based Middleware ---
//
// RequireRoles must run after AuthMiddleware. It reads the role that
// AuthMiddleware stored in the context and enforces it.
//

// RequireRoles allows the request through only when the user has one of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	label := strings.Join(roles, " or ")

	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			abort(c, http.StatusUnauthorized, "User role not found in context (AuthMiddleware must run first)")
			return
		}
		if _, ok := allowed[role]; !ok {
			abort(c, http.StatusForbidden, "Access denied: "+label+" role required")
			return
		}
		c.Next()
	}
}

// CORSMiddleware allows the configured frontend origin to call the API with credentials.
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
