package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/collabhub-golang/internal/models"
)

const selectBrand = `
	SELECT id, user_id, company_name, slug, industry, website, logo_url, description, created_at, updated_at
	FROM brands`

func scanBrand(row interface{ Scan(...any) error }) (*models.Brand, error) {
	var b models.Brand
	err := row.Scan(&b.ID, &b.UserID, &b.CompanyName, &b.Slug, &b.Industry, &b.Website, &b.LogoURL, &b.Description, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBrandProfile is the handler for GET /v1/brand/profile
func (h *Handlers) GetBrandProfile(c *gin.Context) {
	userID, _ := currentUser(c)

	brand, err := scanBrand(h.DB.QueryRow(selectBrand+" WHERE user_id = ?", userID))
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusNotFound, "Brand profile not found")
		return
	}
	if err != nil {
		h.serverError(c, "load brand profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "brand": brand})
}

// UpdateBrandProfileInput is the body of PUT /v1/brand/profile.
type UpdateBrandProfileInput struct {
	CompanyName string `json:"companyName" binding:"required"`
	Industry    string `json:"industry"`
	Website     string `json:"website" binding:"omitempty,url"`
	LogoURL     string `json:"logoUrl" binding:"omitempty,url"`
	Description string `json:"description"`
}

// UpdateBrandProfile is the handler for PUT /v1/brand/profile
// The slug is fixed at registration and does not follow name changes.
func (h *Handlers) UpdateBrandProfile(c *gin.Context) {
	var input UpdateBrandProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	userID, _ := currentUser(c)

	res, err := h.DB.Exec(`
		UPDATE brands
		SET company_name = ?, industry = ?, website = ?, logo_url = ?, description = ?, updated_at = ?
		WHERE user_id = ?`,
		input.CompanyName, optional(input.Industry), optional(input.Website), optional(input.LogoURL),
		optional(input.Description), time.Now(), userID)
	if err != nil {
		h.serverError(c, "update brand profile", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "Brand profile not found")
		return
	}

	h.GetBrandProfile(c)
}
