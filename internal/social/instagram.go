package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	instagramAuthBase  = "https://www.instagram.com"
	instagramAPIBase   = "https://api.instagram.com"
	instagramGraphBase = "https://graph.instagram.com"
	instagramScopes    = "instagram_business_basic"
	instagramMediaPage = 25
)

// Instagram implements Provider for the Instagram API with Instagram Login.
// Instagram has no refresh tokens: the long-lived access token refreshes itself.
type Instagram struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthBase     string
	APIBase      string
	GraphBase    string

	c   client
	now func() time.Time
}

// NewInstagram creates an Instagram provider. hc and limiter may be nil.
func NewInstagram(clientID, clientSecret, redirectURL string, hc *http.Client, limiter *rate.Limiter) *Instagram {
	return &Instagram{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthBase:     instagramAuthBase,
		APIBase:      instagramAPIBase,
		GraphBase:    instagramGraphBase,
		c:            newClient("instagram", hc, limiter),
		now:          time.Now,
	}
}

func (in *Instagram) Platform() string { return PlatformInstagram }

func (in *Instagram) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		RedirectURL:  in.RedirectURL,
		Scopes:       []string{instagramScopes},
		Endpoint: oauth2.Endpoint{
			AuthURL:   in.AuthBase + "/oauth/authorize",
			TokenURL:  in.APIBase + "/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (in *Instagram) AuthURL(state, verifier string) string {
	return in.oauthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

type instagramShortToken struct {
	AccessToken string          `json:"access_token"`
	UserID      json.RawMessage `json:"user_id"`
}

type instagramLongToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Exchange trades the code for a short-lived token and immediately upgrades it
// to a long-lived (60 day) token.
func (in *Instagram) Exchange(ctx context.Context, code, verifier string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", in.ClientID)
	form.Set("client_secret", in.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", in.RedirectURL)
	form.Set("code", code)
	form.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, in.oauthConfig().Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// The endpoint answers either with a flat object or wrapped in "data".
	var raw json.RawMessage
	if err := in.c.do(req, &raw, in.decodeErr); err != nil {
		return nil, err
	}
	short, err := parseShortToken(raw)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("grant_type", "ig_exchange_token")
	q.Set("client_secret", in.ClientSecret)
	q.Set("access_token", short.AccessToken)
	long, err := in.longToken(ctx, in.GraphBase+"/access_token?"+q.Encode())
	if err != nil {
		return nil, err
	}
	long.ExternalID = userIDString(short.UserID)
	return long, nil
}

func parseShortToken(raw json.RawMessage) (*instagramShortToken, error) {
	var flat instagramShortToken
	if err := json.Unmarshal(raw, &flat); err == nil && flat.AccessToken != "" {
		return &flat, nil
	}
	var wrapped struct {
		Data []instagramShortToken `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 && wrapped.Data[0].AccessToken != "" {
		return &wrapped.Data[0], nil
	}
	return nil, &APIError{Platform: "instagram", StatusCode: http.StatusOK, Code: "missing_token", Message: "token response did not contain an access token"}
}

func userIDString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n int64
	if json.Unmarshal(raw, &n) == nil && n != 0 {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// Refresh extends a long-lived token. The current access token is the credential.
func (in *Instagram) Refresh(ctx context.Context, tok *Token) (*Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNotConnected
	}
	q := url.Values{}
	q.Set("grant_type", "ig_refresh_token")
	q.Set("access_token", tok.AccessToken)
	next, err := in.longToken(ctx, in.GraphBase+"/refresh_access_token?"+q.Encode())
	if err != nil {
		return nil, err
	}
	next.ExternalID = tok.ExternalID
	return next, nil
}

func (in *Instagram) longToken(ctx context.Context, endpoint string) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var out instagramLongToken
	if err := in.c.do(req, &out, in.decodeErr); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &APIError{Platform: "instagram", StatusCode: http.StatusOK, Code: "missing_token", Message: "long-lived token response was empty"}
	}
	return &Token{
		AccessToken: out.AccessToken,
		Expiry:      expiresIn(in.now(), out.ExpiresIn),
	}, nil
}

type instagramMe struct {
	UserID         json.RawMessage `json:"user_id"`
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	FollowersCount int64           `json:"followers_count"`
	FollowsCount   int64           `json:"follows_count"`
	MediaCount     int64           `json:"media_count"`
}

type instagramMedia struct {
	Data []struct {
		ID        string `json:"id"`
		LikeCount int64  `json:"like_count"`
	} `json:"data"`
}

// Profile fetches account counters. Instagram has no account-level like
// count, so Likes is the sum over the most recent page of media.
func (in *Instagram) Profile(ctx context.Context, tok *Token) (*Profile, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrNotConnected
	}

	q := url.Values{}
	q.Set("fields", "user_id,username,followers_count,follows_count,media_count")
	q.Set("access_token", tok.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.GraphBase+"/me?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var me instagramMe
	if err := in.c.do(req, &me, in.decodeErr); err != nil {
		return nil, err
	}

	q = url.Values{}
	q.Set("fields", "id,like_count")
	q.Set("limit", strconv.Itoa(instagramMediaPage))
	q.Set("access_token", tok.AccessToken)
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, in.GraphBase+"/me/media?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var media instagramMedia
	if err := in.c.do(req, &media, in.decodeErr); err != nil {
		return nil, err
	}
	var likes int64
	for _, m := range media.Data {
		likes += m.LikeCount
	}

	externalID := userIDString(me.UserID)
	if externalID == "" {
		externalID = me.ID
	}
	return &Profile{
		ExternalID: externalID,
		Handle:     me.Username,
		Followers:  me.FollowersCount,
		Following:  me.FollowsCount,
		Likes:      likes,
		MediaCount: me.MediaCount,
	}, nil
}

func (in *Instagram) decodeErr(status int, body []byte) error {
	apiErr := &APIError{Platform: "instagram", StatusCode: status, Message: string(body)}

	var graph struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	}
	if json.Unmarshal(body, &graph) != nil {
		return apiErr
	}
	switch {
	case graph.Error.Message != "":
		apiErr.Code = strconv.Itoa(graph.Error.Code)
		apiErr.Message = graph.Error.Message
	case graph.ErrorMessage != "":
		apiErr.Code = graph.ErrorType
		apiErr.Message = graph.ErrorMessage
	}
	return apiErr
}
