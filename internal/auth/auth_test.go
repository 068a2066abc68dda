package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brandbolt/roasrobo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *AuthManager {
	return NewAuthManager(&config.AuthConfig{
		Enabled:          true,
		GoogleClientID:   "client-id",
		AuthorizedEmails: []string{"ops@brandbolt.com", "Growth@BrandBolt.com"},
		CookieName:       "roasrobo_session",
		CookieMaxAge:     3600,
	}, "http://localhost:8080")
}

func TestIsAuthorized(t *testing.T) {
	am := testManager()

	assert.True(t, am.isAuthorized("ops@brandbolt.com"))
	assert.True(t, am.isAuthorized("GROWTH@brandbolt.com"), "comparison is case-insensitive")
	assert.True(t, am.isAuthorized("  ops@brandbolt.com "))
	assert.False(t, am.isAuthorized("intruder@brandbolt.com"))
	assert.False(t, am.isAuthorized(""))
}

func TestGetSessionLifecycle(t *testing.T) {
	am := testManager()

	am.sessionMu.Lock()
	am.sessions["sid-1"] = &Session{
		Email:     "ops@brandbolt.com",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	am.sessions["sid-expired"] = &Session{
		Email:     "ops@brandbolt.com",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	am.sessionMu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(&http.Cookie{Name: "roasrobo_session", Value: "sid-1"})
	session := am.GetSession(req)
	require.NotNil(t, session)
	assert.Equal(t, "ops@brandbolt.com", session.Email)

	expired := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	expired.AddCookie(&http.Cookie{Name: "roasrobo_session", Value: "sid-expired"})
	assert.Nil(t, am.GetSession(expired), "expired session is rejected and evicted")

	am.sessionMu.RLock()
	_, stillThere := am.sessions["sid-expired"]
	am.sessionMu.RUnlock()
	assert.False(t, stillThere)

	noCookie := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	assert.Nil(t, am.GetSession(noCookie))
}

func TestRequireAuth(t *testing.T) {
	am := testManager()
	handler := am.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Health and auth endpoints pass through unauthenticated.
	for _, path := range []string{"/health", "/auth/login"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// Unauthenticated API access gets a JSON 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")

	// Authenticated API access passes through.
	am.sessionMu.Lock()
	am.sessions["sid"] = &Session{ExpiresAt: time.Now().Add(time.Hour)}
	am.sessionMu.Unlock()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(&http.Cookie{Name: "roasrobo_session", Value: "sid"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleLoginSetsStateCookie(t *testing.T) {
	am := testManager()
	rec := httptest.NewRecorder()
	am.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "accounts.google.com")

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)
	assert.NotEmpty(t, stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	am := testManager()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "genuine"})
	rec := httptest.NewRecorder()
	am.HandleCallback(rec, req)

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=invalid_state")
}
