package handlers

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"

	"github.com/01moynul/collabhub-golang/internal/database"
	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/models"
)

var errEmailTaken = errors.New("email already registered")

// maxVerificationAttempts wrong codes invalidate the current code.
const maxVerificationAttempts = 5

// RegisterBrandInput is the body of POST /v1/auth/register/brand.
type RegisterBrandInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	CompanyName string `json:"companyName" binding:"required"`
	Industry    string `json:"industry"`
	Website     string `json:"website" binding:"omitempty,url"`
}

// RegisterInfluencerInput is the body of POST /v1/auth/register/influencer.
type RegisterInfluencerInput struct {
	FullName    string `json:"fullName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
	Niche       string `json:"niche"`
}

// RegisterBrand is the handler for POST /v1/auth/register/brand
func (h *Handlers) RegisterBrand(c *gin.Context) {
	var input RegisterBrandInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.register(c, models.RoleBrand, input.FullName, input.Email, input.Password, func(tx *sql.Tx, userID int64, now time.Time) error {
		brandSlug, err := uniqueSlug(tx, "brands", input.CompanyName)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO brands (user_id, company_name, slug, industry, website, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, input.CompanyName, brandSlug, optional(input.Industry), optional(input.Website), now, now)
		return err
	})
}

// RegisterInfluencer is the handler for POST /v1/auth/register/influencer
func (h *Handlers) RegisterInfluencer(c *gin.Context) {
	var input RegisterInfluencerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	h.register(c, models.RoleInfluencer, input.FullName, input.Email, input.Password, func(tx *sql.Tx, userID int64, now time.Time) error {
		_, err := tx.Exec(`
			INSERT INTO influencers (user_id, display_name, niche, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			userID, input.DisplayName, optional(input.Niche), now, now)
		return err
	})
}

// register creates an UNVERIFIED user plus its role profile and mails the
// verification code.
func (h *Handlers) register(c *gin.Context, role, fullName, addr, password string, profile func(tx *sql.Tx, userID int64, now time.Time) error) {
	addr = normalizeEmail(addr)

	// 1. --- Hash the Password ---
	var pw models.Password
	if err := pw.Set(password); err != nil {
		h.serverError(c, "hash password", err)
		return
	}

	code, err := verificationCode()
	if err != nil {
		h.serverError(c, "generate verification code", err)
		return
	}

	// 2. --- Insert user + profile in one transaction ---
	now := time.Now()
	expiry := now.Add(h.verificationTTL())

	tx, err := h.DB.Begin()
	if err != nil {
		h.serverError(c, "begin transaction", err)
		return
	}
	defer tx.Rollback()

	userID, err := insertUser(tx, role, addr, pw.Hash, fullName, code, expiry, now)
	if errors.Is(err, errEmailTaken) {
		fail(c, http.StatusConflict, "An account with this email already exists")
		return
	}
	if err != nil {
		h.serverError(c, "insert user", err)
		return
	}

	if err := profile(tx, userID, now); err != nil {
		h.serverError(c, "insert profile", err)
		return
	}

	if err := tx.Commit(); err != nil {
		h.serverError(c, "commit registration", err)
		return
	}

	// 3. --- Send the code ---
	h.sendEmail(c.Request.Context(), email.VerificationEmail(addr, code))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful. Check your email for the verification code.",
		"userId":  userID,
	})
}

func insertUser(tx *sql.Tx, role, addr, hash, fullName, code string, expiry, now time.Time) (int64, error) {
	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", addr).Scan(&exists); err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, errEmailTaken
	}

	res, err := tx.Exec(`
		INSERT INTO users
		(role, status, email, password_hash, full_name, verification_code, verification_expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role, models.UserStatusUnverified, addr, hash, fullName, code, expiry, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// VerifyEmailInput is the body of POST /v1/auth/verify-email.
type VerifyEmailInput struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// VerifyEmail is the handler for POST /v1/auth/verify-email
// A matching, unexpired code activates the account.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	var input VerifyEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	addr := normalizeEmail(input.Email)

	var (
		userID   int64
		status   string
		code     sql.NullString
		expiry   sql.NullTime
		attempts int
	)
	err := h.DB.QueryRow(
		"SELECT id, status, verification_code, verification_expiry, verification_attempts FROM users WHERE email = ?", addr,
	).Scan(&userID, &status, &code, &expiry, &attempts)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusBadRequest, "Invalid verification code")
		return
	}
	if err != nil {
		h.serverError(c, "load user for verification", err)
		return
	}

	if status != models.UserStatusUnverified {
		fail(c, http.StatusConflict, "Account is already verified")
		return
	}
	if !code.Valid && attempts >= maxVerificationAttempts {
		fail(c, http.StatusTooManyRequests, "Too many incorrect codes, request a new one")
		return
	}
	if !code.Valid || code.String != input.Code {
		h.failVerification(c, userID, attempts)
		return
	}
	if !expiry.Valid || time.Now().After(expiry.Time) {
		fail(c, http.StatusBadRequest, "Verification code has expired, request a new one")
		return
	}

	// Guarded on the code so a guess racing the lockout cannot activate.
	res, err := h.DB.Exec(`
		UPDATE users
		SET status = ?, verification_code = NULL, verification_expiry = NULL, verification_attempts = 0, updated_at = ?
		WHERE id = ? AND status = ? AND verification_code = ? AND verification_attempts < ?`,
		models.UserStatusActive, time.Now(), userID, models.UserStatusUnverified, input.Code, maxVerificationAttempts)
	if err != nil {
		h.serverError(c, "activate user", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		fail(c, http.StatusBadRequest, "Invalid verification code")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified. You can now log in."})
}

// failVerification counts a wrong code and drops the code once the limit is hit.
func (h *Handlers) failVerification(c *gin.Context, userID int64, attempts int) {
	// verification_code is assigned first: MySQL evaluates SET left to right.
	_, err := h.DB.Exec(`
		UPDATE users
		SET verification_code = CASE WHEN verification_attempts + 1 >= ? THEN NULL ELSE verification_code END,
			verification_attempts = verification_attempts + 1
		WHERE id = ? AND verification_code IS NOT NULL`,
		maxVerificationAttempts, userID)
	if err != nil {
		h.serverError(c, "count verification attempt", err)
		return
	}
	if attempts+1 >= maxVerificationAttempts {
		fail(c, http.StatusTooManyRequests, "Too many incorrect codes, request a new one")
		return
	}
	fail(c, http.StatusBadRequest, "Invalid verification code")
}

// ResendCodeInput is the body of POST /v1/auth/resend-code.
type ResendCodeInput struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendCode is the handler for POST /v1/auth/resend-code
// The answer is the same whether or not the address is registered.
func (h *Handlers) ResendCode(c *gin.Context) {
	var input ResendCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	addr := normalizeEmail(input.Email)

	code, err := verificationCode()
	if err != nil {
		h.serverError(c, "generate verification code", err)
		return
	}

	now := time.Now()
	res, err := h.DB.Exec(`
		UPDATE users
		SET verification_code = ?, verification_expiry = ?, verification_attempts = 0, updated_at = ?
		WHERE email = ? AND status = ?`,
		code, now.Add(h.verificationTTL()), now, addr, models.UserStatusUnverified)
	if err != nil {
		h.serverError(c, "store verification code", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		h.sendEmail(c.Request.Context(), email.VerificationEmail(addr, code))
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "If the account exists and is unverified, a new code has been sent."})
}

// LoginInput is the body of POST /v1/auth/login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	// 1. --- Load user ---
	var user models.User
	err := h.DB.QueryRow(`
		SELECT id, role, status, email, password_hash, full_name, created_at, updated_at
		FROM users WHERE email = ?`, normalizeEmail(input.Email),
	).Scan(&user.ID, &user.Role, &user.Status, &user.Email, &user.PasswordHash, &user.FullName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.serverError(c, "load user for login", err)
		return
	}

	// 2. --- Check password ---
	pw := models.Password{Hash: user.PasswordHash}
	ok, err := pw.Matches(input.Password)
	if err != nil || !ok {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	// 3. --- Check status ---
	switch user.Status {
	case models.UserStatusSuspended:
		fail(c, http.StatusForbidden, "Your account has been suspended")
		return
	case models.UserStatusUnverified:
		fail(c, http.StatusForbidden, "Please verify your email before logging in")
		return
	}

	// 4. --- Issue token ---
	token, err := h.Tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		h.serverError(c, "generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func (h *Handlers) verificationTTL() time.Duration {
	if h.Config != nil && h.Config.VerificationCodeTTL > 0 {
		return h.Config.VerificationCodeTTL
	}
	return 15 * time.Minute
}

// verificationCode returns a random 6-digit code.
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// uniqueSlug slugifies name and appends -2, -3, ... until it is free in table.
func uniqueSlug(q database.Querier, table, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "item"
	}
	candidate := base
	for i := 2; ; i++ {
		var n int
		if err := q.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE slug = ?", candidate).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// optional maps "" to NULL.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
