package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
)

var _ repository.QuestionRepository = (*QuestionDB)(nil)

// QuestionDB stores questions.
type QuestionDB struct {
	conn *sql.DB
}

// Every read joins the author's username so pages don't need a second lookup.
const questionSelect = `
	SELECT q.id, q.user_id, COALESCE(u.username, ''), q.title, q.content, q.image, q.created_at
	FROM questions q
	LEFT JOIN users u ON u.id = q.user_id`

func scanQuestion(row interface{ Scan(...any) error }, q *model.Question) error {
	return row.Scan(&q.ID, &q.AuthorID, &q.AuthorName, &q.Title, &q.Content, &q.Image, &q.CreatedAt)
}

// Create inserts a question. CreatedAt is set to now unless the caller
// already filled it in; it is stored in UTC so ORDER BY created_at sorts
// chronologically.
func (s *QuestionDB) Create(ctx context.Context, question *model.Question) error {
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now()
	}
	question.CreatedAt = question.CreatedAt.UTC()

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO questions (user_id, title, content, image, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		question.AuthorID,
		question.Title,
		question.Content,
		question.Image,
		question.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating question: %w", err)
	}

	question.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new question id: %w", err)
	}
	return nil
}

// GetByID retrieves a single question by its ID.
func (s *QuestionDB) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	var q model.Question
	err := scanQuestion(s.conn.QueryRowContext(ctx, questionSelect+` WHERE q.id = ?`, id), &q)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %d: %w", id, err)
	}
	return &q, nil
}

// List returns all questions, newest first. Questions created in the same
// instant fall back to id order so the listing is stable.
func (s *QuestionDB) List(ctx context.Context) ([]model.Question, error) {
	rows, err := s.conn.QueryContext(ctx, questionSelect+` ORDER BY q.created_at DESC, q.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions: %w", err)
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		if err := scanQuestion(rows, &q); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}
	return questions, nil
}
