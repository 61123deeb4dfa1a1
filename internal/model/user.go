// Package model defines the data structures used throughout the application.
// Relations between models are plain id fields; reverse lookups (a question's
// answers, a user's tasks) are repository calls.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is a bcrypt hash and is never serialized. IsLoggedIn mirrors
// session presence: it is set on login and cleared on logout so the home page
// can show who is currently around.
type User struct {
	ID           int64     `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	Points       int       `json:"points"     db:"points"`
	IsLoggedIn   bool      `json:"isLoggedIn" db:"is_logged_in"`
	CreatedAt    time.Time `json:"createdAt"  db:"created_at"`
}
