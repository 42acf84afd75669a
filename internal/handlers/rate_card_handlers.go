package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/models"
)

func listRateCards(q database.Querier, influencerID int64) ([]models.RateCard, error) {
	rows, err := q.Query(`
		SELECT id, influencer_id, platform, service_type, price, currency, description, created_at, updated_at
		FROM rate_cards
		WHERE influencer_id = ?
		ORDER BY platform, service_type`, influencerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []models.RateCard{}
	for rows.Next() {
		var rc models.RateCard
		if err := rows.Scan(&rc.ID, &rc.InfluencerID, &rc.Platform, &rc.ServiceType, &rc.Price, &rc.Currency,
			&rc.Description, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, rc)
	}
	return cards, rows.Err()
}

// RateCardInput is the body of POST and PUT /v1/influencer/rate-cards.
type RateCardInput struct {
	Platform    string          `json:"platform" binding:"required,oneof=TIKTOK INSTAGRAM"`
	ServiceType string          `json:"serviceType" binding:"required,oneof=POST STORY REEL VIDEO LIVE"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" binding:"omitempty,len=3,alpha"`
	Description string          `json:"description"`
}

func (in *RateCardInput) validate() string {
	if !in.Price.IsPositive() {
		return "Price must be greater than zero"
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	in.Currency = strings.ToUpper(in.Currency)
	return ""
}

// GetMyRateCards is the handler for GET /v1/influencer/rate-cards
func (h *Handlers) GetMyRateCards(c *gin.Context) {
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	cards, err := listRateCards(h.DB, infID)
	if err != nil {
		h.serverError(c, "list rate cards", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rateCards": cards})
}

// CreateRateCard is the handler for POST /v1/influencer/rate-cards
func (h *Handlers) CreateRateCard(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input RateCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	// 2. --- One card per (platform, service) ---
	if taken, err := h.rateCardTaken(infID, input.Platform, input.ServiceType, 0); err != nil {
		h.serverError(c, "check rate card", err)
		return
	} else if taken {
		fail(c, http.StatusConflict, "A rate card for this platform and service already exists")
		return
	}

	// 3. --- Save to Database ---
	now := time.Now()
	res, err := h.DB.Exec(`
		INSERT INTO rate_cards
		(influencer_id, platform, service_type, price, currency, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		infID, input.Platform, input.ServiceType, input.Price, input.Currency, optional(input.Description), now, now)
	if err != nil {
		h.serverError(c, "insert rate card", err)
		return
	}
	id, _ := res.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"rateCard": models.RateCard{
			ID:           id,
			InfluencerID: infID,
			Platform:     input.Platform,
			ServiceType:  input.ServiceType,
			Price:        input.Price,
			Currency:     input.Currency,
			Description:  optional(input.Description),
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	})
}

// UpdateRateCard is the handler for PUT /v1/influencer/rate-cards/:id
func (h *Handlers) UpdateRateCard(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var input RateCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if msg := input.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	if taken, err := h.rateCardTaken(infID, input.Platform, input.ServiceType, id); err != nil {
		h.serverError(c, "check rate card", err)
		return
	} else if taken {
		fail(c, http.StatusConflict, "A rate card for this platform and service already exists")
		return
	}

	res, err := h.DB.Exec(`
		UPDATE rate_cards
		SET platform = ?, service_type = ?, price = ?, currency = ?, description = ?, updated_at = ?
		WHERE id = ? AND influencer_id = ?`,
		input.Platform, input.ServiceType, input.Price, input.Currency, optional(input.Description), time.Now(), id, infID)
	if err != nil {
		h.serverError(c, "update rate card", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "Rate card not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rate card updated"})
}

// DeleteRateCard is the handler for DELETE /v1/influencer/rate-cards/:id
func (h *Handlers) DeleteRateCard(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	infID, ok := h.requireInfluencer(c)
	if !ok {
		return
	}

	res, err := h.DB.Exec("DELETE FROM rate_cards WHERE id = ? AND influencer_id = ?", id, infID)
	if err != nil {
		h.serverError(c, "delete rate card", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusNotFound, "Rate card not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rate card deleted"})
}

// rateCardTaken reports whether another card (not exceptID) already covers platform and service.
func (h *Handlers) rateCardTaken(infID int64, platform, service string, exceptID int64) (bool, error) {
	var id int64
	err := h.DB.QueryRow(
		"SELECT id FROM rate_cards WHERE influencer_id = ? AND platform = ? AND service_type = ? AND id <> ?",
		infID, platform, service, exceptID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
