package handlers_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/01moynul/collabhub-golang/internal/auth"
	"github.com/01moynul/collabhub-golang/internal/config"
	"github.com/01moynul/collabhub-golang/internal/connections"
	"github.com/01moynul/collabhub-golang/internal/dbtest"
	"github.com/01moynul/collabhub-golang/internal/email"
	"github.com/01moynul/collabhub-golang/internal/handlers"
	"github.com/01moynul/collabhub-golang/internal/jobs"
	"github.com/01moynul/collabhub-golang/internal/routes"
	"github.com/01moynul/collabhub-golang/internal/social"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *recordingMailer) Enqueue(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) to(addr string) []email.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []email.Message
	for _, msg := range m.sent {
		if msg.To == addr {
			out = append(out, msg)
		}
	}
	return out
}

// testEnv is the full router over a SQLite database.
type testEnv struct {
	t      *testing.T
	db     *sql.DB
	fx     *dbtest.Fixture
	tokens *auth.TokenManager
	mail   *recordingMailer
	router *gin.Engine
}

func newEnv(t *testing.T, providers ...social.Provider) *testEnv {
	t.Helper()
	db := dbtest.Open(t)
	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	registry := social.NewRegistry(providers...)
	conns := &connections.Service{DB: db, Social: registry}
	mail := &recordingMailer{}

	h := &handlers.Handlers{
		DB:          db,
		DBReadOnly:  db,
		Tokens:      tokens,
		Mailer:      mail,
		Social:      registry,
		Connections: conns,
		Jobs:        &jobs.Runner{DB: db, Connections: conns, Log: zap.NewNop(), Concurrency: 2},
		Config: &config.Config{
			UploadDir:           t.TempDir(),
			BaseURL:             "http://api.test",
			VerificationCodeTTL: 15 * time.Minute,
		},
		Log: zap.NewNop(),
	}

	return &testEnv{
		t:      t,
		db:     db,
		fx:     dbtest.NewFixture(t, db),
		tokens: tokens,
		mail:   mail,
		router: routes.SetupRouter(h),
	}
}

// token issues a bearer token for an existing user.
func (e *testEnv) token(userID int64, role string) string {
	e.t.Helper()
	tok, err := e.tokens.GenerateToken(userID, role)
	require.NoError(e.t, err)
	return tok
}

// do sends a JSON request. body may be nil.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// decode parses a JSON response body into a generic map.
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// scalar runs a single-value query.
func (e *testEnv) scalar(dest any, query string, args ...any) {
	e.t.Helper()
	require.NoError(e.t, e.db.QueryRow(query, args...).Scan(dest))
}
