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

func newTestInstagram(t *testing.T, mux *http.ServeMux) *Instagram {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	in := NewInstagram("client", "secret", "https://app.example.com/cb", srv.Client(), nil)
	in.APIBase = srv.URL
	in.GraphBase = srv.URL
	in.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return in
}

func TestInstagramAuthURL(t *testing.T) {
	in := NewInstagram("client", "secret", "https://app.example.com/cb", nil, nil)

	u, err := url.Parse(in.AuthURL("st", "verifier-verifier-verifier-verifier-verifier"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/oauth/authorize", u.Path)
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "st", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
}

func TestInstagramExchangeUpgradesToLongLived(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "code-1", r.PostForm.Get("code"))
		w.Write([]byte(`{"data":[{"access_token":"short","user_id":"17841","permissions":"instagram_business_basic"}]}`))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ig_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"access_token":"long","token_type":"bearer","expires_in":5184000}`))
	})
	in := newTestInstagram(t, mux)

	tok, err := in.Exchange(context.Background(), "code-1", "v")
	require.NoError(t, err)
	assert.Equal(t, "long", tok.AccessToken)
	assert.Equal(t, "17841", tok.ExternalID)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tok.Expiry)
}

func TestInstagramExchangeFlatResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"short","user_id":17841}`))
	})
	mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"long","expires_in":60}`))
	})
	in := newTestInstagram(t, mux)

	tok, err := in.Exchange(context.Background(), "code-1", "v")
	require.NoError(t, err)
	assert.Equal(t, "17841", tok.ExternalID)
}

func TestInstagramProfileSumsLikes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"user_id":"17841","username":"chef","followers_count":5000,"follows_count":12,"media_count":3}`))
	})
	mux.HandleFunc("/me/media", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"1","like_count":10},{"id":"2","like_count":20},{"id":"3"}]}`))
	})
	in := newTestInstagram(t, mux)

	p, err := in.Profile(context.Background(), &Token{AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, &Profile{ExternalID: "17841", Handle: "chef", Followers: 5000, Following: 12, Likes: 30, MediaCount: 3}, p)
}

func TestInstagramGraphError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/refresh_access_token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`))
	})
	in := newTestInstagram(t, mux)

	_, err := in.Refresh(context.Background(), &Token{AccessToken: "expired"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "190", apiErr.Code)
	assert.Equal(t, "Error validating access token", apiErr.Message)
}
