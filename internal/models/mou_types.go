package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MOU is the memorandum of understanding between a brand and an influencer for
// one campaign. Brand, influencer and admin each own one approval field; Status
// is the aggregate of the three.
type MOU struct {
	ID                 int64           `json:"id" db:"id"`
	CampaignID         int64           `json:"campaignId" db:"campaign_id"`
	BrandID            int64           `json:"brandId" db:"brand_id"`
	InfluencerID       int64           `json:"influencerId" db:"influencer_id"`
	Title              string          `json:"title" db:"title"`
	Deliverables       string          `json:"deliverables" db:"deliverables"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Currency           string          `json:"currency" db:"currency"`
	StartDate          time.Time       `json:"startDate" db:"start_date"`
	EndDate            time.Time       `json:"endDate" db:"end_date"`
	DocumentURL        *string         `json:"documentUrl,omitempty" db:"document_url"`
	BrandApproval      string          `json:"brandApproval" db:"brand_approval"`
	InfluencerApproval string          `json:"influencerApproval" db:"influencer_approval"`
	AdminApproval      string          `json:"adminApproval" db:"admin_approval"`
	Status             string          `json:"status" db:"status"`
	RejectionReason    *string         `json:"rejectionReason,omitempty" db:"rejection_reason"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`

	// Joins
	CampaignTitle  string `json:"campaignTitle,omitempty" db:"-"`
	BrandName      string `json:"brandName,omitempty" db:"-"`
	InfluencerName string `json:"influencerName,omitempty" db:"-"`
}
