package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountsctrl "github.com/dropDatabas3/accounts/internal/http/controllers/accounts"
	healthctrl "github.com/dropDatabas3/accounts/internal/http/controllers/health"
	verificationctrl "github.com/dropDatabas3/accounts/internal/http/controllers/verification"
	mw "github.com/dropDatabas3/accounts/internal/http/middlewares"
	accountssvc "github.com/dropDatabas3/accounts/internal/http/services/accounts"
	healthsvc "github.com/dropDatabas3/accounts/internal/http/services/health"
	verificationsvc "github.com/dropDatabas3/accounts/internal/http/services/verification"
	"github.com/dropDatabas3/accounts/internal/identity"
	"github.com/dropDatabas3/accounts/internal/rate"
	"github.com/dropDatabas3/accounts/internal/store/memory"
)

const (
	secret = "router-test-secret"
	issuer = "https://idp.test"
)

type mailbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *mailbox) SendVerificationCode(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = code
	return nil
}
func (m *mailbox) SendWelcome(context.Context, string, string) error { return nil }
func (m *mailbox) SendSignInConfirmation(context.Context, string, string, bool) error {
	return nil
}

func newServer(t *testing.T) (*httptest.Server, *mailbox) {
	t.Helper()
	verifier, err := identity.NewVerifier(identity.Config{Issuer: issuer, HS256Secret: secret})
	require.NoError(t, err)

	accounts := memory.NewAccountStore()
	box := &mailbox{codes: map[string]string{}}
	limiter := rate.NewMemoryLimiter()

	h := New(Deps{
		Accounts: accountsctrl.NewAccountsController(accountssvc.NewService(accountssvc.Deps{
			Accounts: accounts, Notifier: box, AllowSelfAdmin: true,
		})),
		Verification: verificationctrl.NewVerificationController(verificationsvc.NewService(verificationsvc.Deps{
			Codes: memory.NewCodeStore(), Accounts: accounts, Notifier: box,
		})),
		Health:        healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{})),
		Identity:      verifier,
		SessionCookie: "__session",
		IssueLimit:    mw.RateLimitConfig{Limiter: limiter, Bucket: "issue", Limit: 2, Window: time.Minute},
		VerifyLimit:   mw.RateLimitConfig{Limiter: limiter, Bucket: "verify", Limit: 10, Window: time.Minute},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, box
}

func token(t *testing.T, sub, email string) string {
	t.Helper()
	claims := jwtv5.MapClaims{
		"iss":        issuer,
		"sub":        sub,
		"email":      email,
		"given_name": "Erin",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func call(t *testing.T, srv *httptest.Server, method, path, tok, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestAccountsFlowWithAliases(t *testing.T) {
	srv, _ := newServer(t)
	tok := token(t, "user_erin", "erin@example.com")

	res := call(t, srv, http.MethodPost, "/accounts", tok, `{"role":"seller"}`)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res = call(t, srv, http.MethodPost, "/api/accounts", tok, "")
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res = call(t, srv, http.MethodGet, "/api/accounts", tok, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newServer(t)

	res := call(t, srv, http.MethodGet, "/accounts", "", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = call(t, srv, http.MethodGet, "/accounts", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/accounts", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "__session", Value: token(t, "user_cookie", "c@example.com")})
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusNotFound, res2.StatusCode, "authenticated via cookie, no account yet")
}

func TestVerificationFlowAndRateLimit(t *testing.T) {
	srv, box := newServer(t)
	tok := token(t, "user_erin", "erin@example.com")

	res := call(t, srv, http.MethodPost, "/api/auth/verify-email", tok, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "2", res.Header.Get("X-RateLimit-Limit"))

	box.mu.Lock()
	code := box.codes["erin@example.com"]
	box.mu.Unlock()
	res = call(t, srv, http.MethodPost, "/verify-code", tok, `{"code":"`+code+`"}`)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = call(t, srv, http.MethodPost, "/verify-email", tok, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	res = call(t, srv, http.MethodPost, "/verify-email", tok, "")
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("Retry-After"))

	res = call(t, srv, http.MethodPost, "/sign-in-confirmation", tok, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPublicAndFallbackRoutes(t *testing.T) {
	srv, _ := newServer(t)

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/healthz", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/readyz", "", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/nope", "", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/metrics", "", "").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, call(t, srv, http.MethodDelete, "/healthz", "", "").StatusCode)
}
