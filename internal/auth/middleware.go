package auth

import (
	"context"
	"log/slog"
	"net/http"
)

// Identity is the authenticated user behind a request. It is carried in the
// request context and handed explicitly to every service call; nothing reads
// session state from anywhere else.
type Identity struct {
	UserID   int64
	Username string
}

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the request's identity, if a valid session was
// presented.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID > 0
}

// LoadSession validates the session cookie on every request and stores the
// identity in the context. A missing, expired or tampered cookie just means
// "not logged in"; the request always continues. Bad cookies are cleared so
// the browser stops sending them.
func LoadSession(sessions *SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := sessions.Parse(cookie.Value)
			if err != nil {
				logger.Debug("discarding session cookie", slog.String("error", err.Error()))
				sessions.ClearCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireLogin lets requests with an identity through and hands everything
// else to deny, which is expected to redirect (never to fail the request).
func RequireLogin(deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); !ok {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
