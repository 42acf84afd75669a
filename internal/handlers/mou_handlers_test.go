package handlers_test

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mouSetup struct {
	brandUser, infUser, admin int64
	campaign, influencer      int64
}

func seedMOUParties(e *testEnv, invitationStatus string) mouSetup {
	var s mouSetup
	var brandID int64
	s.brandUser, brandID = e.fx.Brand("Acme")
	s.infUser, s.influencer = e.fx.Influencer("Ava", "beauty")
	s.admin = e.fx.Admin()
	s.campaign = e.fx.Campaign(brandID, "ACTIVE", time.Now(), time.Now().Add(30*24*time.Hour))
	e.fx.Invitation(s.campaign, s.influencer, invitationStatus)
	return s
}

func (e *testEnv) createMOU(s mouSetup) (int64, int) {
	e.t.Helper()
	start := time.Now().UTC().Truncate(time.Second)
	w := e.do(http.MethodPost, "/v1/brand/mous", e.token(s.brandUser, "BRAND"), map[string]any{
		"campaignId":   s.campaign,
		"influencerId": s.influencer,
		"title":        "Two reels",
		"deliverables": "2 reels, 3 stories",
		"amount":       "750.00",
		"startDate":    start,
		"endDate":      start.Add(14 * 24 * time.Hour),
	})
	if w.Code != http.StatusCreated {
		return 0, w.Code
	}
	m := decode(e.t, w)["mou"].(map[string]any)
	return int64(m["id"].(float64)), w.Code
}

func (e *testEnv) decide(mouID, userID int64, role, decision, reason string) (int, map[string]any) {
	e.t.Helper()
	w := e.do(http.MethodPatch, fmt.Sprintf("/v1/mous/%d/decision", mouID), e.token(userID, role),
		map[string]any{"decision": decision, "reason": reason})
	return w.Code, decode(e.t, w)
}

func TestCreateMOURequiresAcceptedInvitation(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "PENDING")

	_, code := e.createMOU(s)
	assert.Equal(t, http.StatusConflict, code)

	e.fx.Exec("UPDATE campaign_invitations SET status = 'ACCEPTED'")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)
	assert.NotZero(t, id)

	_, code = e.createMOU(s)
	assert.Equal(t, http.StatusConflict, code, "one live MOU per campaign and influencer")

	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM notifications WHERE user_id = ?", s.infUser))
}

func TestMOUApprovalWorkflow(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)

	// Admin cannot go first.
	code, _ = e.decide(id, s.admin, "ADMIN", "APPROVED", "")
	assert.Equal(t, http.StatusConflict, code)

	code, body := e.decide(id, s.brandUser, "BRAND", "APPROVED", "")
	require.Equal(t, http.StatusOK, code, body)
	mou := body["mou"].(map[string]any)
	assert.Equal(t, "APPROVED", mou["brandApproval"])
	assert.Equal(t, "PENDING", mou["status"])

	code, _ = e.decide(id, s.brandUser, "BRAND", "APPROVED", "")
	assert.Equal(t, http.StatusConflict, code, "each party decides once")

	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM notifications WHERE user_id = ?", s.admin))
	code, _ = e.decide(id, s.infUser, "INFLUENCER", "APPROVED", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM notifications WHERE user_id = ?", s.admin))

	code, body = e.decide(id, s.admin, "ADMIN", "APPROVED", "")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "APPROVED", body["mou"].(map[string]any)["status"])

	var brandEmail, infEmail string
	e.scalar(&brandEmail, "SELECT email FROM users WHERE id = ?", s.brandUser)
	e.scalar(&infEmail, "SELECT email FROM users WHERE id = ?", s.infUser)
	assert.Len(t, e.mail.to(brandEmail), 1)
	assert.Len(t, e.mail.to(infEmail), 1)

	code, _ = e.decide(id, s.admin, "ADMIN", "REJECTED", "too late")
	assert.Equal(t, http.StatusConflict, code)
}

func TestMOURejection(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)

	code, _ = e.decide(id, s.infUser, "INFLUENCER", "REJECTED", "  ")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := e.decide(id, s.infUser, "INFLUENCER", "REJECTED", "Rate too low")
	require.Equal(t, http.StatusOK, code)
	mou := body["mou"].(map[string]any)
	assert.Equal(t, "REJECTED", mou["status"])
	assert.Equal(t, "Rate too low", mou["rejectionReason"])

	code, _ = e.decide(id, s.brandUser, "BRAND", "APPROVED", "")
	assert.Equal(t, http.StatusConflict, code)

	// A rejected MOU no longer blocks a new one.
	_, code = e.createMOU(s)
	assert.Equal(t, http.StatusCreated, code)
}

func TestMOUHiddenFromOtherParties(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)

	otherBrand, _ := e.fx.Brand("Other")
	otherInf, _ := e.fx.Influencer("Ben", "tech")
	path := fmt.Sprintf("/v1/mous/%d", id)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, e.token(otherBrand, "BRAND"), nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path, e.token(otherInf, "INFLUENCER"), nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, e.token(s.infUser, "INFLUENCER"), nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, path, e.token(s.admin, "ADMIN"), nil).Code)

	code, _ = e.decide(id, otherBrand, "BRAND", "APPROVED", "")
	assert.Equal(t, http.StatusNotFound, code)

	w := e.do(http.MethodGet, "/v1/admin/mous?status=pending", e.token(s.admin, "ADMIN"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["mous"], 1)
}

func TestMOUOnEndedCampaign(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")

	e.fx.Exec("UPDATE campaigns SET status = 'CANCELLED' WHERE id = ?", s.campaign)
	_, code := e.createMOU(s)
	assert.Equal(t, http.StatusConflict, code)

	e.fx.Exec("UPDATE campaigns SET status = 'ACTIVE' WHERE id = ?", s.campaign)
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)

	e.fx.Exec("UPDATE campaigns SET status = 'COMPLETED' WHERE id = ?", s.campaign)
	code, _ = e.decide(id, s.brandUser, "BRAND", "APPROVED", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM mous WHERE id = ? AND brand_approval = 'PENDING'", id))

	code, body := e.decide(id, s.infUser, "INFLUENCER", "REJECTED", "Campaign is over")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "REJECTED", body["mou"].(map[string]any)["status"])
}

func TestConcurrentDecisionsLandOnce(t *testing.T) {
	e := newEnv(t)
	s := seedMOUParties(e, "ACCEPTED")
	id, code := e.createMOU(s)
	require.Equal(t, http.StatusCreated, code)

	const n = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	path := fmt.Sprintf("/v1/mous/%d/decision", id)
	brandTok := e.token(s.brandUser, "BRAND")
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := e.do(http.MethodPatch, path, brandTok, map[string]any{"decision": "APPROVED"})
			mu.Lock()
			codes[w.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, codes[http.StatusOK], codes)
	assert.Equal(t, n-1, codes[http.StatusConflict], codes)
	// The creation notice plus a single decision notice.
	assert.Equal(t, 2, e.fx.Count("SELECT COUNT(*) FROM notifications WHERE user_id = ?", s.infUser))
}

func TestConcurrentApprovalsNotifyAdminOnce(t *testing.T) {
	e := newEnv(t)
	for i := 0; i < 5; i++ {
		s := seedMOUParties(e, "ACCEPTED")
		id, code := e.createMOU(s)
		require.Equal(t, http.StatusCreated, code)

		path := fmt.Sprintf("/v1/mous/%d/decision", id)
		toks := []string{e.token(s.brandUser, "BRAND"), e.token(s.infUser, "INFLUENCER")}
		codes := make([]int, len(toks))
		var wg sync.WaitGroup
		for j, tok := range toks {
			wg.Add(1)
			go func(j int, tok string) {
				defer wg.Done()
				codes[j] = e.do(http.MethodPatch, path, tok, map[string]any{"decision": "APPROVED"}).Code
			}(j, tok)
		}
		wg.Wait()

		assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
		assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM notifications WHERE user_id = ?", s.admin),
			"admin review notice for MOU %d", id)
	}
}
