package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/social"
)

// oauthStateTTL is how long a connect link stays valid.
const oauthStateTTL = 10 * time.Minute

var errStateInvalid = errors.New("oauth state is invalid or expired")

func platformParam(c *gin.Context) string {
	return strings.ToUpper(c.Param("platform"))
}

// provider resolves the :platform param or writes a 404.
func (h *Handlers) provider(c *gin.Context) (social.Provider, bool) {
	p, err := h.Social.Get(platformParam(c))
	if err != nil {
		fail(c, http.StatusNotFound, "Platform is not available")
		return nil, false
	}
	return p, true
}

// ConnectPlatform is the handler for GET /v1/influencer/connect/:platform
// It returns the platform's authorization URL. The PKCE verifier stays on the
// server, keyed by the state value.
func (h *Handlers) ConnectPlatform(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	if _, ok := h.requireInfluencer(c); !ok {
		return
	}
	userID, _ := currentUser(c)

	state := uuid.NewString()
	verifier := social.NewVerifier()
	now := time.Now()

	// Old links of this user are dropped along with any expired ones.
	if _, err := h.DB.Exec("DELETE FROM oauth_states WHERE expires_at < ? OR (user_id = ? AND platform = ?)",
		now, userID, provider.Platform()); err != nil {
		h.serverError(c, "purge oauth states", err)
		return
	}
	if _, err := h.DB.Exec("INSERT INTO oauth_states (state, user_id, platform, code_verifier, expires_at) VALUES (?, ?, ?, ?, ?)",
		state, userID, provider.Platform(), verifier, now.Add(oauthStateTTL)); err != nil {
		h.serverError(c, "store oauth state", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": provider.AuthURL(state, verifier)})
}

// consumeState loads and deletes state in one transaction, so each state works once.
func (h *Handlers) consumeState(state, platform string) (userID int64, verifier string, err error) {
	tx, err := h.DB.Begin()
	if err != nil {
		return 0, "", err
	}
	defer tx.Rollback()

	var (
		statePlatform string
		expiresAt     time.Time
	)
	err = tx.QueryRow("SELECT user_id, platform, code_verifier, expires_at FROM oauth_states WHERE state = ?", state).
		Scan(&userID, &statePlatform, &verifier, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", errStateInvalid
	}
	if err != nil {
		return 0, "", err
	}

	res, err := tx.Exec("DELETE FROM oauth_states WHERE state = ?", state)
	if err != nil {
		return 0, "", err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return 0, "", errStateInvalid
	}
	if err := tx.Commit(); err != nil {
		return 0, "", err
	}

	if statePlatform != platform || time.Now().After(expiresAt) {
		return 0, "", errStateInvalid
	}
	return userID, verifier, nil
}

// OAuthCallback is the handler for GET /v1/oauth/:platform/callback
// It is public: the state value identifies the influencer who started the flow.
func (h *Handlers) OAuthCallback(c *gin.Context) {
	provider, ok := h.provider(c)
	if !ok {
		return
	}
	platform := provider.Platform()

	// 1. --- The user may have denied access ---
	if e := c.Query("error"); e != "" {
		h.callbackResult(c, platform, http.StatusBadRequest, "Authorization was denied: "+e)
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		h.callbackResult(c, platform, http.StatusBadRequest, "Missing code or state")
		return
	}

	// 2. --- Consume the state ---
	userID, verifier, err := h.consumeState(state, platform)
	if errors.Is(err, errStateInvalid) {
		h.callbackResult(c, platform, http.StatusBadRequest, "This connect link is invalid or has expired")
		return
	}
	if err != nil {
		h.serverError(c, "consume oauth state", err)
		return
	}
	infID, err := h.influencerIDFor(userID)
	if err != nil {
		h.callbackResult(c, platform, http.StatusNotFound, "Influencer profile not found")
		return
	}

	// 3. --- Exchange code, read profile, store ---
	ctx := c.Request.Context()
	tok, err := provider.Exchange(ctx, code, verifier)
	if err != nil {
		h.logger().Warn("oauth exchange failed", zap.String("platform", platform), zap.Error(err))
		h.callbackResult(c, platform, http.StatusBadGateway, "Could not connect your account, please try again")
		return
	}
	profile, err := provider.Profile(ctx, tok)
	if err != nil {
		h.logger().Warn("oauth profile failed", zap.String("platform", platform), zap.Error(err))
		h.callbackResult(c, platform, http.StatusBadGateway, "Could not read your account statistics, please try again")
		return
	}
	if err := h.Connections.Save(ctx, infID, platform, tok, profile); err != nil {
		h.serverError(c, "save connection", err)
		return
	}

	h.logger().Info("platform connected", zap.Int64("influencer_id", infID), zap.String("platform", platform))
	h.callbackResult(c, platform, http.StatusOK, "")
}

// callbackResult redirects the browser back to the frontend when one is
// configured, and answers JSON otherwise.
func (h *Handlers) callbackResult(c *gin.Context, platform string, status int, message string) {
	if h.Config != nil && h.Config.FrontendOrigin != "" {
		q := url.Values{"platform": {strings.ToLower(platform)}}
		if status == http.StatusOK {
			q.Set("connected", "1")
		} else {
			q.Set("error", message)
		}
		c.Redirect(http.StatusFound, strings.TrimRight(h.Config.FrontendOrigin, "/")+"/influencer/platforms?"+q.Encode())
		return
	}
	if status != http.StatusOK {
		fail(c, status, message)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "platform": platform, "message": "Account connected"})
}

// RefreshPlatform is the handler for POST /v1/influencer/platforms/:platform/refresh
func (h *Handlers) RefreshPlatform(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	conn, err := h.Connections.Get(infID, platformParam(c))
	if errors.Is(err, social.ErrNotConnected) {
		fail(c, http.StatusNotFound, "Platform is not connected")
		return
	}
	if err != nil {
		h.serverError(c, "load connection", err)
		return
	}

	if err := h.Connections.Refresh(c.Request.Context(), conn); err != nil {
		var apiErr *social.APIError
		if errors.As(err, &apiErr) || errors.Is(err, social.ErrUnknownPlatform) {
			fail(c, http.StatusBadGateway, "Could not refresh the account, try reconnecting it")
			return
		}
		h.serverError(c, "refresh connection", err)
		return
	}

	h.GetMyPlatforms(c)
}

// DisconnectPlatform is the handler for DELETE /v1/influencer/platforms/:platform
func (h *Handlers) DisconnectPlatform(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	err := h.Connections.Disconnect(infID, platformParam(c))
	if errors.Is(err, social.ErrNotConnected) {
		fail(c, http.StatusNotFound, "Platform is not connected")
		return
	}
	if err != nil {
		h.serverError(c, "disconnect platform", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Platform disconnected"})
}
