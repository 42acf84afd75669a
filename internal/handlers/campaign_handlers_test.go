package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndTransitionCampaign(t *testing.T) {
	e := newEnv(t)
	brandUser, _ := e.fx.Brand("Acme")
	token := e.token(brandUser, "BRAND")

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	bad := map[string]any{"title": "Launch", "budget": "500", "startDate": start, "endDate": start.Add(-time.Hour)}
	w := e.do(http.MethodPost, "/v1/brand/campaigns", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/v1/brand/campaigns", token, map[string]any{
		"title": "Summer Launch", "budget": "1500.50", "platform": "TIKTOK",
		"startDate": start, "endDate": start.Add(30 * 24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	campaign := decode(t, w)["campaign"].(map[string]any)
	assert.Equal(t, "DRAFT", campaign["status"])
	assert.Equal(t, "summer-launch", campaign["slug"])
	assert.Equal(t, "1500.5", campaign["budget"])
	id := int64(campaign["id"].(float64))

	statusPath := fmt.Sprintf("/v1/brand/campaigns/%d/status", id)
	w = e.do(http.MethodPatch, statusPath, token, map[string]any{"status": "PAUSED"})
	assert.Equal(t, http.StatusConflict, w.Code, "draft cannot be paused")

	w = e.do(http.MethodPatch, statusPath, token, map[string]any{"status": "ACTIVE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodPatch, statusPath, token, map[string]any{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, w.Code)

	// Cancelled campaigns are frozen.
	w = e.do(http.MethodPut, fmt.Sprintf("/v1/brand/campaigns/%d", id), token, map[string]any{
		"title": "Renamed", "startDate": start, "endDate": start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPatch, statusPath, token, map[string]any{"status": "ACTIVE"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCampaignsAreScopedToOwner(t *testing.T) {
	e := newEnv(t)
	_, acme := e.fx.Brand("Acme")
	otherUser, _ := e.fx.Brand("Other")
	id := e.fx.Campaign(acme, "ACTIVE", time.Now(), time.Now().Add(time.Hour))

	w := e.do(http.MethodGet, fmt.Sprintf("/v1/brand/campaigns/%d", id), e.token(otherUser, "BRAND"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/v1/brand/campaigns", e.token(otherUser, "BRAND"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["campaigns"])
}

func TestCampaignRoutesRequireBrandRole(t *testing.T) {
	e := newEnv(t)
	infUser, _ := e.fx.Influencer("Ava", "beauty")

	w := e.do(http.MethodGet, "/v1/brand/campaigns", e.token(infUser, "INFLUENCER"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCampaignMetricsSummary(t *testing.T) {
	e := newEnv(t)
	brandUser, brandID := e.fx.Brand("Acme")
	_, ava := e.fx.Influencer("Ava", "beauty")
	_, ben := e.fx.Influencer("Ben", "tech")
	id := e.fx.Campaign(brandID, "ACTIVE", time.Now().Add(-48*time.Hour), time.Now().Add(48*time.Hour))

	insert := func(inf int64, followers, likes, growth int64, at time.Time) {
		e.fx.Exec(`INSERT INTO campaign_snapshots
			(campaign_id, influencer_id, platform, followers, likes, media_count, followers_growth, likes_growth, growth_rate, captured_at)
			VALUES (?, ?, 'TIKTOK', ?, ?, 10, ?, 0, 0, ?)`, id, inf, followers, likes, growth, at)
	}
	base := time.Now().Add(-24 * time.Hour)
	insert(ava, 1000, 100, 0, base)
	insert(ava, 1200, 150, 200, base.Add(time.Hour))
	insert(ben, 1000, 50, 0, base)
	insert(ben, 1000, 60, 0, base.Add(time.Hour))

	w := e.do(http.MethodGet, fmt.Sprintf("/v1/brand/campaigns/%d/metrics", id), e.token(brandUser, "BRAND"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["influencers"])
	assert.EqualValues(t, 2200, summary["totalFollowers"])
	assert.EqualValues(t, 200, summary["followersGrowth"])
	assert.EqualValues(t, 60, summary["likesGrowth"])
	assert.EqualValues(t, 10, summary["growthRate"])
	assert.Len(t, body["snapshots"], 4)
}
