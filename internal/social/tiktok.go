package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	tiktokAuthBase = "https://www.tiktok.com"
	tiktokAPIBase  = "https://open.tiktokapis.com"
	tiktokScopes   = "user.info.basic,user.info.profile,user.info.stats"
	tiktokFields   = "open_id,username,display_name,follower_count,following_count,likes_count,video_count"
)

// TikTok implements Provider for the TikTok Open API v2.
type TikTok struct {
	ClientKey    string
	ClientSecret string
	RedirectURL  string
	AuthBase     string
	APIBase      string

	c   client
	now func() time.Time
}

// NewTikTok creates a TikTok provider. hc and limiter may be nil.
func NewTikTok(clientKey, clientSecret, redirectURL string, hc *http.Client, limiter *rate.Limiter) *TikTok {
	return &TikTok{
		ClientKey:    clientKey,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBase:     tiktokAuthBase,
		APIBase:      tiktokAPIBase,
		c:            newClient("tiktok", hc, limiter),
		now:          time.Now,
	}
}

func (t *TikTok) Platform() string { return PlatformTikTok }

// AuthURL builds the authorize URL. TikTok names the client id "client_key".
func (t *TikTok) AuthURL(state, verifier string) string {
	q := url.Values{}
	q.Set("client_key", t.ClientKey)
	q.Set("scope", tiktokScopes)
	q.Set("response_type", "code")
	q.Set("redirect_uri", t.RedirectURL)
	q.Set("state", state)
	q.Set("code_challenge", Challenge(verifier))
	q.Set("code_challenge_method", "S256")
	return t.AuthBase + "/v2/auth/authorize/?" + q.Encode()
}

type tiktokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`

	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (t *TikTok) Exchange(ctx context.Context, code, verifier string) (*Token, error) {
	form := url.Values{}
	form.Set("client_key", t.ClientKey)
	form.Set("client_secret", t.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", t.RedirectURL)
	form.Set("code_verifier", verifier)
	return t.token(ctx, form)
}

func (t *TikTok) Refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok == nil || tok.RefreshToken == "" {
		return nil, ErrNotConnected
	}
	form := url.Values{}
	form.Set("client_key", t.ClientKey)
	form.Set("client_secret", t.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", tok.RefreshToken)
	return t.token(ctx, form)
}

func (t *TikTok) token(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.APIBase+"/v2/oauth/token/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out tiktokTokenResponse
	if err := t.c.do(req, &out, t.decodeErr); err != nil {
		return nil, err
	}
	// The token endpoint reports failures with a 200 and an "error" field.
	if out.Error != "" || out.AccessToken == "" {
		return nil, &APIError{Platform: "tiktok", StatusCode: http.StatusOK, Code: out.Error, Message: out.ErrorDescription}
	}

	now := t.now()
	return &Token{
		AccessToken:   out.AccessToken,
		RefreshToken:  out.RefreshToken,
		Expiry:        expiresIn(now, out.ExpiresIn),
		RefreshExpiry: expiresIn(now, out.RefreshExpiresIn),
		ExternalID:    out.OpenID,
	}, nil
}

type tiktokEnvelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type tiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID         string `json:"open_id"`
			Username       string `json:"username"`
			DisplayName    string `json:"display_name"`
			FollowerCount  int64  `json:"follower_count"`
			FollowingCount int64  `json:"following_count"`
			LikesCount     int64  `json:"likes_count"`
			VideoCount     int64  `json:"video_count"`
		} `json:"user"`
	} `json:"data"`
	Error tiktokEnvelopeError `json:"error"`
}

func (t *TikTok) Profile(ctx context.Context, tok *Token) (*Profile, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNotConnected
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.APIBase+"/v2/user/info/?fields="+tiktokFields, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	var out tiktokUserResponse
	if err := t.c.do(req, &out, t.decodeErr); err != nil {
		return nil, err
	}
	if out.Error.Code != "" && out.Error.Code != "ok" {
		return nil, &APIError{Platform: "tiktok", StatusCode: http.StatusOK, Code: out.Error.Code, Message: out.Error.Message}
	}

	u := out.Data.User
	handle := u.Username
	if handle == "" {
		handle = u.DisplayName
	}
	return &Profile{
		ExternalID: u.OpenID,
		Handle:     handle,
		Followers:  u.FollowerCount,
		Following:  u.FollowingCount,
		Likes:      u.LikesCount,
		MediaCount: u.VideoCount,
	}, nil
}

func (t *TikTok) decodeErr(status int, body []byte) error {
	apiErr := &APIError{Platform: "tiktok", StatusCode: status, Message: string(body)}

	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return apiErr
	}
	// "error" is a string on the token endpoint and an object elsewhere.
	var code string
	if json.Unmarshal(envelope.Error, &code) == nil {
		apiErr.Code = code
		apiErr.Message = envelope.ErrorDescription
		return apiErr
	}
	var obj tiktokEnvelopeError
	if json.Unmarshal(envelope.Error, &obj) == nil {
		apiErr.Code = obj.Code
		apiErr.Message = obj.Message
	}
	return apiErr
}
