package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/01moynul/collabhub-golang/internal/auth"
	"github.com/01moynul/collabhub-golang/internal/dbtest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setup(t *testing.T) (*gin.Engine, *auth.TokenManager, *dbtest.Fixture) {
	t.Helper()
	db := dbtest.Open(t)
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	admin := r.Group("/admin", AuthMiddleware(tokens, db), RequireRoles("ADMIN"))
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetInt64(ContextUserID)})
	})
	return r, tokens, dbtest.NewFixture(t, db)
}

func do(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	r, _, _ := setup(t)
	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)
}

func TestRequireRoles(t *testing.T) {
	r, tokens, fx := setup(t)

	adminID := fx.Admin()
	token, err := tokens.GenerateToken(adminID, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, token).Code)

	brandUser, _ := fx.Brand("Acme")
	token, err = tokens.GenerateToken(brandUser, "BRAND")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, token).Code)
}

func TestRoleComesFromDatabase(t *testing.T) {
	r, tokens, fx := setup(t)

	// A token claiming ADMIN for a brand user must not pass.
	brandUser, _ := fx.Brand("Acme")
	token, err := tokens.GenerateToken(brandUser, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, token).Code)
}

func TestSuspendedUserBlocked(t *testing.T) {
	r, tokens, fx := setup(t)

	adminID := fx.Admin()
	token, err := tokens.GenerateToken(adminID, "ADMIN")
	require.NoError(t, err)

	fx.Exec("UPDATE users SET status = 'SUSPENDED' WHERE id = ?", adminID)
	assert.Equal(t, http.StatusForbidden, do(r, token).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
