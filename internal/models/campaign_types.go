package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign statuses
const (
	CampaignDraft     = "DRAFT"
	CampaignActive    = "ACTIVE"
	CampaignPaused    = "PAUSED"
	CampaignCompleted = "COMPLETED"
	CampaignCancelled = "CANCELLED"
)

// Campaign is a brand's marketing campaign.
type Campaign struct {
	ID          int64           `json:"id" db:"id"`
	BrandID     int64           `json:"brandId" db:"brand_id"`
	Title       string          `json:"title" db:"title"`
	Slug        string          `json:"slug" db:"slug"`
	Description *string         `json:"description,omitempty" db:"description"`
	Platform    *string         `json:"platform,omitempty" db:"platform"`
	Budget      decimal.Decimal `json:"budget" db:"budget"`
	StartDate   time.Time       `json:"startDate" db:"start_date"`
	EndDate     time.Time       `json:"endDate" db:"end_date"`
	Status      string          `json:"status" db:"status"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`

	// Flattened for UI convenience (populated manually)
	BrandName string `json:"brandName,omitempty" db:"-"`
}

// campaignTransitions lists the statuses a campaign may move to from each status.
var campaignTransitions = map[string][]string{
	CampaignDraft:  {CampaignActive, CampaignCancelled},
	CampaignActive: {CampaignPaused, CampaignCompleted, CampaignCancelled},
	CampaignPaused: {CampaignActive, CampaignCancelled},
}

// CanTransitionCampaign reports whether a campaign may move from one status to another.
func CanTransitionCampaign(from, to string) bool {
	for _, allowed := range campaignTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanAdminTransitionCampaign reports whether an admin may force a campaign into
// status. Admins can pause a draft or active campaign and cancel any live one.
func CanAdminTransitionCampaign(from, to string) bool {
	switch to {
	case CampaignPaused:
		return from == CampaignDraft || from == CampaignActive
	case CampaignCancelled:
		return CampaignEditable(from)
	}
	return false
}

// CampaignEditable reports whether campaign details may still change.
func CampaignEditable(status string) bool {
	return status != CampaignCompleted && status != CampaignCancelled
}

// Invitation statuses
const (
	InvitationPending   = "PENDING"
	InvitationAccepted  = "ACCEPTED"
	InvitationDeclined  = "DECLINED"
	InvitationWithdrawn = "WITHDRAWN"
)

// CampaignInvitation links a campaign to an invited influencer.
type CampaignInvitation struct {
	ID           int64      `json:"id" db:"id"`
	CampaignID   int64      `json:"campaignId" db:"campaign_id"`
	InfluencerID int64      `json:"influencerId" db:"influencer_id"`
	Message      *string    `json:"message,omitempty" db:"message"`
	Status       string     `json:"status" db:"status"`
	RespondedAt  *time.Time `json:"respondedAt,omitempty" db:"responded_at"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`

	// Joins
	CampaignTitle  string `json:"campaignTitle,omitempty" db:"-"`
	InfluencerName string `json:"influencerName,omitempty" db:"-"`
	BrandName      string `json:"brandName,omitempty" db:"-"`
}

// CampaignSnapshot is a point-in-time record of an influencer's stats during a campaign.
type CampaignSnapshot struct {
	ID              int64     `json:"id" db:"id"`
	CampaignID      int64     `json:"campaignId" db:"campaign_id"`
	InfluencerID    int64     `json:"influencerId" db:"influencer_id"`
	Platform        string    `json:"platform" db:"platform"`
	Followers       int64     `json:"followers" db:"followers"`
	Likes           int64     `json:"likes" db:"likes"`
	MediaCount      int64     `json:"mediaCount" db:"media_count"`
	FollowersGrowth int64     `json:"followersGrowth" db:"followers_growth"`
	LikesGrowth     int64     `json:"likesGrowth" db:"likes_growth"`
	GrowthRate      float64   `json:"growthRate" db:"growth_rate"`
	CapturedAt      time.Time `json:"capturedAt" db:"captured_at"`
}
