package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTikTok(t *testing.T, handler http.HandlerFunc) *TikTok {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tt := NewTikTok("key", "secret", "https://app.example.com/cb", srv.Client(), nil)
	tt.APIBase = srv.URL
	tt.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return tt
}

func TestTikTokAuthURL(t *testing.T) {
	tt := NewTikTok("key", "secret", "https://app.example.com/cb", nil, nil)
	verifier := NewVerifier()

	u, err := url.Parse(tt.AuthURL("state-1", verifier))
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "www.tiktok.com", u.Host)
	assert.Equal(t, "key", q.Get("client_key"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, Challenge(verifier), q.Get("code_challenge"))
	assert.NotEqual(t, verifier, q.Get("code_challenge"))
}

func TestTikTokExchange(t *testing.T) {
	tt := newTestTikTok(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/oauth/token/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "key", r.PostForm.Get("client_key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"act","expires_in":86400,"open_id":"open-1","refresh_token":"rft","refresh_expires_in":31536000,"token_type":"Bearer"}`))
	})

	tok, err := tt.Exchange(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "act", tok.AccessToken)
	assert.Equal(t, "rft", tok.RefreshToken)
	assert.Equal(t, "open-1", tok.ExternalID)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), tok.Expiry)
}

func TestTikTokExchangeError(t *testing.T) {
	tt := newTestTikTok(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Authorization code is expired."}`))
	})

	_, err := tt.Exchange(context.Background(), "old", "v")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid_grant", apiErr.Code)
}

func TestTikTokRefreshRequiresToken(t *testing.T) {
	tt := NewTikTok("key", "secret", "", nil, nil)
	_, err := tt.Refresh(context.Background(), &Token{AccessToken: "a"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTikTokProfile(t *testing.T) {
	tt := newTestTikTok(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer act", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("fields"), "follower_count")
		w.Write([]byte(`{"data":{"user":{"open_id":"open-1","username":"dancer","display_name":"Dancer","follower_count":1200,"following_count":10,"likes_count":9000,"video_count":42}},"error":{"code":"ok","message":"","log_id":"x"}}`))
	})

	p, err := tt.Profile(context.Background(), &Token{AccessToken: "act"})
	require.NoError(t, err)
	assert.Equal(t, &Profile{ExternalID: "open-1", Handle: "dancer", Followers: 1200, Following: 10, Likes: 9000, MediaCount: 42}, p)
}

func TestTikTokProfileErrorEnvelope(t *testing.T) {
	tt := newTestTikTok(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"data":{},"error":{"code":"access_token_invalid","message":"The access token is invalid.","log_id":"x"}}`))
	})

	_, err := tt.Profile(context.Background(), &Token{AccessToken: "bad"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "access_token_invalid", apiErr.Code)
}

func TestTokenNeedsRefresh(t *testing.T) {
	now := time.Now()
	assert.False(t, (&Token{}).NeedsRefresh(now, time.Minute))
	assert.True(t, (&Token{Expiry: now.Add(5 * time.Minute)}).NeedsRefresh(now, 10*time.Minute))
	assert.False(t, (&Token{Expiry: now.Add(time.Hour)}).NeedsRefresh(now, 10*time.Minute))
}

func TestRegistry(t *testing.T) {
	r := FromApps(Apps{TikTokKey: "k", TikTokSecret: "s", RatePerSecond: 1})

	p, err := r.Get("TIKTOK")
	require.NoError(t, err)
	assert.Equal(t, "TIKTOK", p.Platform())

	_, err = r.Get("INSTAGRAM")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}
