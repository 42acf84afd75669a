package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate card service types.
const (
	ServicePost  = "POST"
	ServiceStory = "STORY"
	ServiceReel  = "REEL"
	ServiceVideo = "VIDEO"
	ServiceLive  = "LIVE"
)

// RateCard is an influencer's price for one service on one platform.
type RateCard struct {
	ID           int64           `json:"id" db:"id"`
	InfluencerID int64           `json:"influencerId" db:"influencer_id"`
	Platform     string          `json:"platform" db:"platform"`
	ServiceType  string          `json:"serviceType" db:"service_type"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Currency     string          `json:"currency" db:"currency"`
	Description  *string         `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}
