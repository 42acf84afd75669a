package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/ai"
	"github.com/01moynul/collabhub-golang/internal/auth"
	"github.com/01moynul/collabhub-golang/internal/config"
	"github.com/01moynul/collabhub-golang/internal/connections"
	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/jobs"
	"github.com/01moynul/collabhub-golang/internal/middleware"
	"github.com/01moynul/collabhub-golang/internal/social"
)

// Mailer queues outgoing email.
type Mailer interface {
	Enqueue(ctx context.Context, msg email.Message) error
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB          *sql.DB // Primary Read/Write connection
	DBReadOnly  *sql.DB // Read-Only connection, used by the AI assistant
	Tokens      *auth.TokenManager
	Mailer      Mailer
	Social      *social.Registry
	Connections *connections.Service
	Jobs        *jobs.Runner
	AIService   *ai.AIService // nil when no Gemini key is configured
	Config      *config.Config
	Log         *zap.Logger
}

var (
	errNoBrandProfile      = errors.New("brand profile not found")
	errNoInfluencerProfile = errors.New("influencer profile not found")
)

// fail writes the standard error body.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

// currentUser returns the id and role set by the auth middleware.
func currentUser(c *gin.Context) (int64, string) {
	userID := c.GetInt64(middleware.ContextUserID)
	role := c.GetString(middleware.ContextRole)
	return userID, role
}

// paramID parses a positive numeric path parameter, writing a 400 when it is not one.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt reads an integer query parameter, falling back to def and clamping to max.
func queryInt(c *gin.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// brandIDFor returns the brand profile id of a BRAND user.
func (h *Handlers) brandIDFor(userID int64) (int64, error) {
	var id int64
	err := h.DB.QueryRow("SELECT id FROM brands WHERE user_id = ?", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errNoBrandProfile
	}
	return id, err
}

// influencerIDFor returns the influencer profile id of an INFLUENCER user.
func (h *Handlers) influencerIDFor(userID int64) (int64, error) {
	var id int64
	err := h.DB.QueryRow("SELECT id FROM influencers WHERE user_id = ?", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errNoInfluencerProfile
	}
	return id, err
}

// requireBrand resolves the caller's brand id or writes the error response.
func (h *Handlers) requireBrand(c *gin.Context) (int64, bool) {
	userID, _ := currentUser(c)
	brandID, err := h.brandIDFor(userID)
	if errors.Is(err, errNoBrandProfile) {
		fail(c, http.StatusNotFound, "Brand profile not found")
		return 0, false
	}
	if err != nil {
		h.serverError(c, "brand lookup failed", err)
		return 0, false
	}
	return brandID, true
}

// requireInfluencer resolves the caller's influencer id or writes the error response.
func (h *Handlers) requireInfluencer(c *gin.Context) (int64, bool) {
	userID, _ := currentUser(c)
	infID, err := h.influencerIDFor(userID)
	if errors.Is(err, errNoInfluencerProfile) {
		fail(c, http.StatusNotFound, "Influencer profile not found")
		return 0, false
	}
	if err != nil {
		h.serverError(c, "influencer lookup failed", err)
		return 0, false
	}
	return infID, true
}

// serverError logs err and answers 500 without leaking details.
func (h *Handlers) serverError(c *gin.Context, what string, err error) {
	h.logger().Error(what, zap.Error(err), zap.String("path", c.FullPath()))
	fail(c, http.StatusInternalServerError, "Internal server error")
}

// sendEmail queues msg. Mail is best effort: a queue failure is logged, not returned.
func (h *Handlers) sendEmail(ctx context.Context, msg email.Message) {
	if h.Mailer == nil {
		return
	}
	if err := h.Mailer.Enqueue(ctx, msg); err != nil {
		h.logger().Warn("failed to queue email", zap.String("to", msg.To), zap.Error(err))
	}
}

func (h *Handlers) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
