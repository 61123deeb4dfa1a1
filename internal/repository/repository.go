// Package repository declares the storage contracts used by the service layer.
// The sqlite subpackage implements all of them on a single *sqlite.DB.
package repository

import (
	"context"

	"github.com/sakif/studyhub/internal/model"
)

// UserRepository stores accounts. Lookups of missing rows return an
// apperror NotFound; a duplicate username on Create returns Conflict.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	SetLoggedIn(ctx context.Context, id int64, loggedIn bool) error
	ListLoggedIn(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
}

// QuestionRepository stores questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *model.Question) error
	GetByID(ctx context.Context, id int64) (*model.Question, error)
	// List returns every question, newest first.
	List(ctx context.Context) ([]model.Question, error)
}

// AcceptResult describes the point transfer performed by AnswerRepository.Accept.
type AcceptResult struct {
	Answer *model.Answer
	// PreviousAnswerID is the answer that lost its accepted flag, 0 if none.
	// It equals Answer.ID when the accepted answer is accepted again.
	PreviousAnswerID int64
}

// AnswerRepository stores answers and runs the accept transfer.
type AnswerRepository interface {
	Create(ctx context.Context, answer *model.Answer) error
	GetByID(ctx context.Context, id int64) (*model.Answer, error)
	// ListByQuestion returns the answers of a question, oldest first.
	ListByQuestion(ctx context.Context, questionID int64) ([]model.Answer, error)
	// Accept marks the answer accepted, unaccepting any other answer on the
	// same question and adjusting both authors' points in one transaction.
	Accept(ctx context.Context, answerID int64, award, penalty int) (*AcceptResult, error)
}

// TaskRepository stores per-user tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	// ListByUser returns a user's tasks in insertion order.
	ListByUser(ctx context.Context, userID int64) ([]model.Task, error)
	// Toggle flips is_done and returns the updated task.
	Toggle(ctx context.Context, id int64) (*model.Task, error)
}
