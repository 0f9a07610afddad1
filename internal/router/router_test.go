package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/admin"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/mailer"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/ratelimit"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission"
	subrepo "github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/repo"
	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/database"
)

type stubGenerator struct{}

func (stubGenerator) Configured() bool { return true }
func (stubGenerator) Generate(context.Context, string) (string, error) {
	return "## Summary\nYou are **ready**.", nil
}

type stubMailer struct{ sent []mailer.Message }

func (m *stubMailer) Configured() bool { return true }
func (m *stubMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

const adminPassword = "letmein"

func newTestServer(t *testing.T) (http.Handler, *stubMailer) {
	t.Helper()
	return newTestServerWith(t, Config{})
}

func newTestServerWith(t *testing.T, cfg Config) (http.Handler, *stubMailer) {
	t.Helper()
	raw, err := database.Connect(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	db := sqlx.NewDb(raw, database.DriverSQLite)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop().Sugar()
	ctx := context.Background()
	subs := subrepo.NewSubmissionRepo(db)
	users := user.NewUserService(db, subs, logger)
	require.NoError(t, users.EnsureTable(ctx))
	require.NoError(t, subs.EnsureTable(ctx))

	store := ratelimit.NewMemoryStore()
	m := &stubMailer{}
	subSvc := submission.NewService(ratelimit.NewLimiter(store, 3, 15*time.Minute), stubGenerator{}, m, users, subs, logger)
	adminSvc := admin.NewService(admin.Config{Password: adminPassword, JWTSecret: "router-test-secret"}, store, admin.NewCSRFStore(), logger)

	return RegisterRoutes(logger, cfg, Handlers{
		Submission: submission.NewHandler(subSvc, logger),
		User:       user.NewHandler(users, logger),
		Admin:      admin.NewHandler(adminSvc, logger),
	}), m
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/admin/csrf", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]
	var issued map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"password":"`+adminPassword+`","csrfToken":"`+issued["csrfToken"]+`"}`))
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["token"].(string)
}

const submitBody = `{
  "email": "Founder@Bakery.test", "company": "Corner Bakery", "sector": "Food", "consent": true,
  "q1": ["none"], "q2": "scattered", "q3": "basic", "q4": ["invoicing"], "q5": "limited",
  "q6": "neutral", "q7": "legacy", "q8": ["manual_data_entry"], "q9": "exploring"
}`

func TestHealthAndHeaders(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"not found"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/submit", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h, _ := newTestServer(t)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/submissions"},
		{http.MethodGet, "/api/admin/submissions/export"},
		{http.MethodDelete, "/api/admin/submissions/1"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodDelete, "/api/admin/users/1"},
		{http.MethodPost, "/api/admin/logout"},
	} {
		rec := do(t, h, route.method, route.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
	rec := do(t, h, http.MethodGet, "/api/admin/users", "", "forged.token.value")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubmitThenAdminFlow(t *testing.T) {
	h, m := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/submit", submitBody, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var submitted struct {
		Success   bool   `json:"success"`
		AIReport  string `json:"aiReport"`
		EmailSent bool   `json:"emailSent"`
		Result    struct {
			Score int    `json:"score"`
			Tier  string `json:"tier"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.True(t, submitted.Success)
	assert.True(t, submitted.EmailSent)
	// 0+1+1+1+1+1+0
	assert.Equal(t, 5, submitted.Result.Score)
	assert.Equal(t, "Not Ready Yet", submitted.Result.Tier)
	assert.Contains(t, submitted.AIReport, "<strong>ready</strong>")
	require.Len(t, m.sent, 1)
	assert.Equal(t, "Founder@Bakery.test", m.sent[0].To)

	token := adminToken(t, h)

	rec = do(t, h, http.MethodGet, "/api/admin/submissions", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Submissions []struct {
			ID         string   `json:"id"`
			UserID     string   `json:"userId"`
			Email      string   `json:"email"`
			Company    string   `json:"company"`
			PainPoints []string `json:"painPoints"`
			EmailSent  bool     `json:"emailSent"`
		} `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Submissions, 1)
	got := listed.Submissions[0]
	assert.Equal(t, "founder@bakery.test", got.Email)
	assert.Equal(t, "Corner Bakery", got.Company)
	assert.True(t, got.EmailSent)
	assert.Equal(t, []string{"AI Adoption", "Data Readiness", "Team Skills", "Leadership Buy-in", "Technology Infrastructure"}, got.PainPoints)

	rec = do(t, h, http.MethodGet, "/api/admin/submissions/export", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], got.ID+","))

	rec = do(t, h, http.MethodGet, "/api/admin/users", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"submissionCount":1`)

	rec = do(t, h, http.MethodDelete, "/api/admin/users/"+got.UserID, "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/admin/users/"+got.UserID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/admin/submissions", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"submissions":[]`)

	rec = do(t, h, http.MethodDelete, "/api/admin/submissions/"+got.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/admin/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(zap.NewNop().Sugar())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rec.Body.String())
}

func loginWithForwardedFor(t *testing.T, h http.Handler, password, forwarded string) *httptest.ResponseRecorder {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/admin/csrf", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login",
		strings.NewReader(`{"password":"`+password+`","csrfToken":"`+cookie.Value+`"}`))
	req.AddCookie(cookie)
	req.Header.Set("X-Forwarded-For", forwarded)
	req.Header.Set("X-Real-IP", forwarded)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestForwardedHeadersIgnoredByDefault(t *testing.T) {
	h, _ := newTestServer(t)

	for i := 1; i <= 5; i++ {
		rec := loginWithForwardedFor(t, h, "wrong", "203.0.113."+strconv.Itoa(i))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"remainingAttempts":`+strconv.Itoa(5-i))
	}
	rec := loginWithForwardedFor(t, h, adminPassword, "203.0.113.99")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	for i := 1; i <= 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(submitBody))
		req.Header.Set("X-Real-IP", "198.51.100."+strconv.Itoa(i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if i <= 3 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestForwardedHeadersHonouredBehindProxy(t *testing.T) {
	h, _ := newTestServerWith(t, Config{TrustProxy: true})

	for i := 0; i < 5; i++ {
		rec := loginWithForwardedFor(t, h, "wrong", "203.0.113.7")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := loginWithForwardedFor(t, h, adminPassword, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// a different forwarded client is not locked out
	rec = loginWithForwardedFor(t, h, adminPassword, "203.0.113.8")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TRUST_PROXY", "")
	assert.False(t, ConfigFromEnv().TrustProxy)
	t.Setenv("TRUST_PROXY", "true")
	assert.True(t, ConfigFromEnv().TrustProxy)
}
