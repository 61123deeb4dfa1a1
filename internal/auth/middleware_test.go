package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// echoIdentity reports what the downstream handler saw in its context.
func echoIdentity(t *testing.T, seen *Identity, ok *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *ok = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoadSession_ValidCookie(t *testing.T) {
	m := newTestSessionManager(t)
	token, err := m.Issue(Identity{UserID: 9, Username: "nine"})
	require.NoError(t, err)

	var seen Identity
	var ok bool
	h := LoadSession(m, discardLogger)(echoIdentity(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.True(t, ok)
	assert.Equal(t, Identity{UserID: 9, Username: "nine"}, seen)
	assert.Empty(t, rr.Result().Cookies(), "a valid cookie is left alone")
}

func TestLoadSession_NoCookie(t *testing.T) {
	m := newTestSessionManager(t)

	var seen Identity
	var ok bool
	h := LoadSession(m, discardLogger)(echoIdentity(t, &seen, &ok))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoadSession_BadCookieIsClearedNotFatal(t *testing.T) {
	m := newTestSessionManager(t)

	var seen Identity
	var ok bool
	h := LoadSession(m, discardLogger)(echoIdentity(t, &seen, &ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged.token.value"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.False(t, ok)
	assert.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestRequireLogin(t *testing.T) {
	deny := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	protected := RequireLogin(deny)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous is redirected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
	})

	t.Run("identity passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{UserID: 1, Username: "a"}))
		rr := httptest.NewRecorder()
		protected.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestIdentityFromContext_ZeroIDIsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithIdentity(req.Context(), Identity{})

	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
}
