package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/service"
)

const (
	msgRegistered = "Registration complete. Please log in."
	msgLoggedIn   = "Logged in."
	msgLoggedOut  = "You have been logged out."
)

// AuthHandler serves registration, login and logout.
//
// Login state lives in two places: the signed session cookie, which is what
// authorises requests, and the user's is_logged_in flag, which only feeds the
// "online now" list on the home page.
type AuthHandler struct {
	users    *service.AuthService
	sessions *auth.SessionManager
	views    *Renderer
	logger   *slog.Logger
}

// NewAuthHandler returns an AuthHandler.
func NewAuthHandler(users *service.AuthService, sessions *auth.SessionManager, views *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, views: views, logger: logger}
}

// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, pageRegister, "Register", nil)
}

// HTTP: POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/register", msgSomethingWrong)
		return
	}

	if _, err := h.users.Register(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password")); err != nil {
		redirectWithError(w, r, h.logger, "/register", err)
		return
	}
	redirect(w, r, "/login", msgRegistered)
}

// HTTP: GET /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, pageLogin, "Log in", nil)
}

// HTTP: POST /login
//
// The session cookie is only set after the service accepted the password,
// so a failed login leaves the browser without a session.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/login", msgSomethingWrong)
		return
	}

	user, err := h.users.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		redirectWithError(w, r, h.logger, "/login", err)
		return
	}

	if err := h.sessions.SetCookie(w, auth.Identity{UserID: user.ID, Username: user.Username}); err != nil {
		redirectWithError(w, r, h.logger, "/login", err)
		return
	}
	redirect(w, r, "/", msgLoggedIn)
}

// HTTP: GET /logout
//
// Works with or without a session. The cookie is cleared even if updating
// the logged-in flag fails.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.users.Logout(r.Context(), id); err != nil {
		h.logger.Error("failed to clear logged-in flag",
			slog.Int64("user_id", id.UserID),
			slog.String("error", err.Error()),
		)
	}

	h.sessions.ClearCookie(w)
	redirect(w, r, "/", msgLoggedOut)
}

// LoginRequired is the deny handler for auth.RequireLogin: it sends
// anonymous visitors to the login page.
func LoginRequired() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		redirect(w, r, "/login", service.MsgLoginRequired)
	})
}
