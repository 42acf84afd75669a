package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(t *testing.T, body map[string]any) []string {
	t.Helper()
	var out []string
	for _, item := range body["influencers"].([]any) {
		out = append(out, item.(map[string]any)["displayName"].(string))
	}
	return out
}

func TestSearchInfluencers(t *testing.T) {
	e := newEnv(t)
	brandUser, _ := e.fx.Brand("Acme")
	_, ava := e.fx.Influencer("Ava", "beauty")
	_, ben := e.fx.Influencer("Ben", "tech")
	_, cleo := e.fx.Influencer("Cleo", "beauty")
	later := time.Now().Add(24 * time.Hour)
	e.fx.Platform(ava, "TIKTOK", 50000, 100, later)
	e.fx.Platform(ben, "INSTAGRAM", 2000, 100, later)
	e.fx.Platform(cleo, "INSTAGRAM", 800, 100, later)
	token := e.token(brandUser, "BRAND")

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"Ava", "Ben", "Cleo"}},
		{"?niche=beauty", []string{"Ava", "Cleo"}},
		{"?platform=instagram", []string{"Ben", "Cleo"}},
		{"?min_followers=1000", []string{"Ava", "Ben"}},
		{"?niche=beauty&min_followers=1000", []string{"Ava"}},
		{"?q=le", []string{"Cleo"}},
		{"?limit=1&offset=1", []string{"Ben"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := e.do(http.MethodGet, "/v1/influencers"+tt.query, token, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, names(t, decode(t, w)))
		})
	}

	w := e.do(http.MethodGet, "/v1/influencers?platform=myspace", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, fmt.Sprintf("/v1/influencers/%d", ava), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inf := decode(t, w)["influencer"].(map[string]any)
	assert.EqualValues(t, 50000, inf["totalFollowers"])
	assert.Len(t, inf["platforms"], 1)

	infUser, _ := e.fx.Influencer("Dan", "food")
	w = e.do(http.MethodGet, "/v1/influencers", e.token(infUser, "INFLUENCER"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInactiveInfluencersHidden(t *testing.T) {
	e := newEnv(t)
	brandUser, _ := e.fx.Brand("Acme")
	_, ava := e.fx.Influencer("Ava", "beauty")
	benUser, ben := e.fx.Influencer("Ben", "beauty")
	cleoUser, cleo := e.fx.Influencer("Cleo", "beauty")
	e.fx.Exec("UPDATE users SET status = 'SUSPENDED' WHERE id = ?", benUser)
	e.fx.Exec("UPDATE users SET status = 'UNVERIFIED' WHERE id = ?", cleoUser)
	token := e.token(brandUser, "BRAND")

	w := e.do(http.MethodGet, "/v1/influencers?niche=beauty", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"Ava"}, names(t, decode(t, w)))

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, fmt.Sprintf("/v1/influencers/%d", ava), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, fmt.Sprintf("/v1/influencers/%d", ben), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, fmt.Sprintf("/v1/influencers/%d", cleo), token, nil).Code)
}

func TestInfluencerProfileAndRateCards(t *testing.T) {
	e := newEnv(t)
	infUser, _ := e.fx.Influencer("Ava", "beauty")
	token := e.token(infUser, "INFLUENCER")

	w := e.do(http.MethodPut, "/v1/influencer/profile", token, map[string]any{
		"displayName": "Ava Stone", "bio": "Skincare every day", "niche": "beauty", "location": "Lisbon",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/v1/influencer/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ava Stone", decode(t, w)["influencer"].(map[string]any)["displayName"])

	card := map[string]any{"platform": "TIKTOK", "serviceType": "VIDEO", "price": "250", "currency": "eur"}
	w = e.do(http.MethodPost, "/v1/influencer/rate-cards", token, card)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)["rateCard"].(map[string]any)
	assert.Equal(t, "EUR", created["currency"])
	id := int64(created["id"].(float64))

	w = e.do(http.MethodPost, "/v1/influencer/rate-cards", token, card)
	assert.Equal(t, http.StatusConflict, w.Code)

	card["price"] = "0"
	w = e.do(http.MethodPost, "/v1/influencer/rate-cards", token, card)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	card["price"] = "300"
	w = e.do(http.MethodPut, fmt.Sprintf("/v1/influencer/rate-cards/%d", id), token, card)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/v1/influencer/rate-cards", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cards := decode(t, w)["rateCards"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, "300", cards[0].(map[string]any)["price"])

	other, _ := e.fx.Influencer("Ben", "tech")
	w = e.do(http.MethodDelete, fmt.Sprintf("/v1/influencer/rate-cards/%d", id), e.token(other, "INFLUENCER"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/v1/influencer/rate-cards/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
