package model

import "time"

// AnonymousUserID is the author id recorded for answers posted without a
// session. It is stored as NULL and never matches a real user.
const AnonymousUserID int64 = 0

// Question is a post asked by a user, optionally with an uploaded image.
//
// AuthorName is not a column: read queries join it from users.
type Question struct {
	ID         int64     `json:"id"         db:"id"`
	AuthorID   int64     `json:"authorId"   db:"user_id"`
	AuthorName string    `json:"authorName" db:"-"`
	Title      string    `json:"title"      db:"title"`
	Content    string    `json:"content"    db:"content"`
	Image      string    `json:"image"      db:"image"` // filename inside the upload dir, "" when none
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

// HasImage reports whether an image was attached when the question was asked.
func (q *Question) HasImage() bool {
	return q.Image != ""
}

// Answer is a reply to a Question. At most one answer per question is
// accepted at any time.
type Answer struct {
	ID         int64     `json:"id"         db:"id"`
	QuestionID int64     `json:"questionId" db:"question_id"`
	AuthorID   int64     `json:"authorId"   db:"user_id"` // AnonymousUserID when posted without a session
	AuthorName string    `json:"authorName" db:"-"`
	Content    string    `json:"content"    db:"content"`
	IsAccepted bool      `json:"isAccepted" db:"is_accepted"`
	CreatedAt  time.Time `json:"createdAt"  db:"created_at"`
}

// IsAnonymous reports whether the answer was posted without a session.
func (a *Answer) IsAnonymous() bool {
	return a.AuthorID == AnonymousUserID
}
