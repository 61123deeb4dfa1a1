// Package service holds the business rules of the application.
//
//	Handler (HTTP)  → parses forms, redirects, renders pages
//	Service         → validates, checks identity and ownership, orchestrates
//	Repository      → reads and writes SQLite
//
// Services take repository interfaces and an explicit auth.Identity on every
// call that needs one. They never look at HTTP requests or sessions, and they
// report failures as apperror values that the handler turns into flash
// messages.
package service

import (
	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
)

// MsgLoginRequired is returned (as an Unauthenticated error) by operations
// that need a logged-in user.
const MsgLoginRequired = "Please log in first."

// requireIdentity is the service-side half of the login guard; routes are
// also wrapped in auth.RequireLogin.
func requireIdentity(id auth.Identity) error {
	if id.UserID <= 0 {
		return apperror.Unauthenticated(MsgLoginRequired)
	}
	return nil
}
