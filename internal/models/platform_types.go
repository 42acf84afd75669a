package models

import "time"

// Supported social platforms.
const (
	PlatformTikTok    = "TIKTOK"
	PlatformInstagram = "INSTAGRAM"
)

// ValidPlatform reports whether p is a supported platform.
func ValidPlatform(p string) bool {
	return p == PlatformTikTok || p == PlatformInstagram
}

// InfluencerPlatform is a connected social account and its latest stats.
// Tokens never leave the server.
type InfluencerPlatform struct {
	ID             int64      `json:"id" db:"id"`
	InfluencerID   int64      `json:"influencerId" db:"influencer_id"`
	Platform       string     `json:"platform" db:"platform"`
	Handle         string     `json:"handle" db:"handle"`
	ExternalID     string     `json:"-" db:"external_id"`
	Followers      int64      `json:"followers" db:"followers"`
	Following      int64      `json:"following" db:"following"`
	Likes          int64      `json:"likes" db:"likes"`
	MediaCount     int64      `json:"mediaCount" db:"media_count"`
	EngagementRate float64    `json:"engagementRate" db:"engagement_rate"`
	AccessToken    *string    `json:"-" db:"access_token"`
	RefreshToken   *string    `json:"-" db:"refresh_token"`
	TokenExpiry    *time.Time `json:"-" db:"token_expiry"`
	RefreshExpiry  *time.Time `json:"-" db:"refresh_expiry"`
	Connected      bool       `json:"connected" db:"connected"`
	LastSyncedAt   *time.Time `json:"lastSyncedAt,omitempty" db:"last_synced_at"`
	LastError      *string    `json:"lastError,omitempty" db:"last_error"`
}
