// Package social talks to the TikTok and Instagram APIs on behalf of
// influencers: the OAuth 2.0 authorization-code flow with PKCE, token refresh,
// and fetching account statistics.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Platform names, as stored in influencer_platforms.platform.
const (
	PlatformTikTok    = "TIKTOK"
	PlatformInstagram = "INSTAGRAM"
)

var (
	ErrUnknownPlatform = errors.New("unsupported platform")
	ErrNotConfigured   = errors.New("platform credentials are not configured")
	ErrNotConnected    = errors.New("platform is not connected")
)

// Token is an OAuth token pair as issued by a platform.
type Token struct {
	AccessToken   string
	RefreshToken  string
	Expiry        time.Time
	RefreshExpiry time.Time
	// ExternalID is the platform's id for the account, when the token endpoint returns it.
	ExternalID string
}

// NeedsRefresh reports whether the access token expires within leeway of now.
// A zero expiry means the platform did not say, so it is treated as valid.
func (t *Token) NeedsRefresh(now time.Time, leeway time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(t.Expiry)
}

// Profile is the account information and counters we store per platform.
type Profile struct {
	ExternalID string
	Handle     string
	Followers  int64
	Following  int64
	Likes      int64
	MediaCount int64
}

// Provider is one social platform.
type Provider interface {
	Platform() string
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*Token, error)
	Refresh(ctx context.Context, tok *Token) (*Token, error)
	Profile(ctx context.Context, tok *Token) (*Profile, error)
}

// APIError is a non-success answer from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d, code %s): %s", e.Platform, e.StatusCode, e.Code, e.Message)
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// Challenge returns the S256 PKCE challenge for verifier.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// Registry looks providers up by platform name.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Platform()] = p
	}
	return r
}

// Get returns the provider for platform.
func (r *Registry) Get(platform string) (Provider, error) {
	if r == nil {
		return nil, ErrUnknownPlatform
	}
	p, ok := r.providers[platform]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return p, nil
}

// client is the HTTP plumbing shared by the providers.
type client struct {
	platform string
	http     *http.Client
	limiter  *rate.Limiter
}

func newClient(platform string, hc *http.Client, limiter *rate.Limiter) client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return client{platform: platform, http: hc, limiter: limiter}
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses are
// passed to decodeErr, which extracts the platform's error envelope.
func (c client) do(req *http.Request, out any, decodeErr func(status int, body []byte) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", c.platform, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s read body: %w", c.platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeErr(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s decode response: %w", c.platform, err)
	}
	return nil
}

func expiresIn(now time.Time, seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(seconds) * time.Second)
}

// Apps carries the client registrations used by FromApps.
type Apps struct {
	TikTokKey, TikTokSecret, TikTokRedirect         string
	InstagramID, InstagramSecret, InstagramRedirect string
	RatePerSecond                                   float64
}

// FromApps registers every platform that has credentials. All providers share
// one limiter so batch refreshes cannot flood either API.
func FromApps(apps Apps) *Registry {
	limiter := rate.NewLimiter(rate.Limit(apps.RatePerSecond), 1)
	hc := &http.Client{Timeout: 15 * time.Second}

	var providers []Provider
	if apps.TikTokKey != "" && apps.TikTokSecret != "" {
		providers = append(providers, NewTikTok(apps.TikTokKey, apps.TikTokSecret, apps.TikTokRedirect, hc, limiter))
	}
	if apps.InstagramID != "" && apps.InstagramSecret != "" {
		providers = append(providers, NewInstagram(apps.InstagramID, apps.InstagramSecret, apps.InstagramRedirect, hc, limiter))
	}
	return NewRegistry(providers...)
}
