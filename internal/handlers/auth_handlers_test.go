package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBrand(e *testEnv, addr, company string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/v1/auth/register/brand", "", map[string]any{
		"fullName":    "Jane Doe",
		"email":       addr,
		"password":    "supersecret",
		"companyName": company,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegisterVerifyLogin(t *testing.T) {
	e := newEnv(t)
	registerBrand(e, "Jane@Acme.com", "Acme Inc")

	// 1. The verification mail went to the normalized address.
	sent := e.mail.to("jane@acme.com")
	require.Len(t, sent, 1)

	var code string
	e.scalar(&code, "SELECT verification_code FROM users WHERE email = ?", "jane@acme.com")
	assert.Contains(t, sent[0].Body, code)

	// 2. Unverified users cannot log in.
	login := map[string]any{"email": "jane@acme.com", "password": "supersecret"}
	w := e.do(http.MethodPost, "/v1/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 3. Wrong code, then the right one.
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	w = e.do(http.MethodPost, "/v1/auth/verify-email", "", map[string]any{"email": "jane@acme.com", "code": wrong})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/verify-email", "", map[string]any{"email": "jane@acme.com", "code": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 4. Login works and returns a usable token.
	w = e.do(http.MethodPost, "/v1/auth/login", "", login)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	w = e.do(http.MethodGet, "/v1/brand/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	brand := decode(t, w)["brand"].(map[string]any)
	assert.Equal(t, "acme-inc", brand["slug"])

	// 5. Wrong password.
	w = e.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "jane@acme.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsDuplicateEmailAndSuffixesSlug(t *testing.T) {
	e := newEnv(t)
	registerBrand(e, "a@acme.com", "Acme Inc")
	registerBrand(e, "b@acme.com", "Acme Inc")

	var slug string
	e.scalar(&slug, "SELECT b.slug FROM brands b JOIN users u ON u.id = b.user_id WHERE u.email = ?", "b@acme.com")
	assert.Equal(t, "acme-inc-2", slug)

	w := e.do(http.MethodPost, "/v1/auth/register/influencer", "", map[string]any{
		"fullName":    "Dup",
		"email":       "A@acme.com",
		"password":    "supersecret",
		"displayName": "dup",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/v1/auth/register/influencer", "", map[string]any{
		"fullName": "Short",
		"email":    "not-an-email",
		"password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestVerifyExpiredCode(t *testing.T) {
	e := newEnv(t)
	registerBrand(e, "late@acme.com", "Late Co")
	e.fx.Exec("UPDATE users SET verification_code = '123456', verification_expiry = ? WHERE email = ?",
		time.Now().Add(-time.Minute), "late@acme.com")

	w := e.do(http.MethodPost, "/v1/auth/verify-email", "", map[string]any{"email": "late@acme.com", "code": "123456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Resending issues a fresh code and mail.
	w = e.do(http.MethodPost, "/v1/auth/resend-code", "", map[string]any{"email": "late@acme.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, e.mail.to("late@acme.com"), 2)

	var code string
	e.scalar(&code, "SELECT verification_code FROM users WHERE email = ?", "late@acme.com")
	w = e.do(http.MethodPost, "/v1/auth/verify-email", "", map[string]any{"email": "late@acme.com", "code": code})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVerifyLocksAfterWrongCodes(t *testing.T) {
	e := newEnv(t)
	registerBrand(e, "guess@acme.com", "Guess Co")
	e.fx.Exec("UPDATE users SET verification_code = '123456' WHERE email = ?", "guess@acme.com")
	verify := func(code string) int {
		return e.do(http.MethodPost, "/v1/auth/verify-email", "", map[string]any{"email": "guess@acme.com", "code": code}).Code
	}

	for i := 0; i < 4; i++ {
		assert.Equal(t, http.StatusBadRequest, verify("000000"), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, verify("000000"))

	// The right code no longer works once the limit is reached.
	assert.Equal(t, http.StatusTooManyRequests, verify("123456"))
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM users WHERE email = ? AND verification_code IS NULL AND status = 'UNVERIFIED'", "guess@acme.com"))

	w := e.do(http.MethodPost, "/v1/auth/resend-code", "", map[string]any{"email": "guess@acme.com"})
	require.Equal(t, http.StatusOK, w.Code)

	var code string
	e.scalar(&code, "SELECT verification_code FROM users WHERE email = ?", "guess@acme.com")
	assert.Equal(t, http.StatusOK, verify(code))
	assert.Zero(t, e.fx.Count("SELECT verification_attempts FROM users WHERE email = ?", "guess@acme.com"))
}

func TestLoginSuspended(t *testing.T) {
	e := newEnv(t)
	registerBrand(e, "bad@acme.com", "Bad Co")
	e.fx.Exec("UPDATE users SET status = 'SUSPENDED' WHERE email = ?", "bad@acme.com")

	w := e.do(http.MethodPost, "/v1/auth/login", "", map[string]any{"email": "bad@acme.com", "password": "supersecret"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
