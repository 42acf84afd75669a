package models

import "time"

// Brand is the company profile owned by a BRAND user.
type Brand struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"userId" db:"user_id"`
	CompanyName string    `json:"companyName" db:"company_name"`
	Slug        string    `json:"slug" db:"slug"`
	Industry    *string   `json:"industry,omitempty" db:"industry"`
	Website     *string   `json:"website,omitempty" db:"website"`
	LogoURL     *string   `json:"logoUrl,omitempty" db:"logo_url"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
