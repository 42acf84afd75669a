package models

import "time"

// Influencer is the creator profile owned by an INFLUENCER user.
type Influencer struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	Bio         *string   `json:"bio,omitempty" db:"bio"`
	Niche       *string   `json:"niche,omitempty" db:"niche"`
	Location    *string   `json:"location,omitempty" db:"location"`
	AvatarURL   *string   `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually)
	TotalFollowers int64                `json:"totalFollowers" db:"-"`
	Platforms      []InfluencerPlatform `json:"platforms,omitempty" db:"-"`
	RateCards      []RateCard           `json:"rateCards,omitempty" db:"-"`
}
