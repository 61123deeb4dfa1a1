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

var _ repository.AnswerRepository = (*AnswerDB)(nil)

// AnswerDB stores answers and performs the accept-answer point transfer.
type AnswerDB struct {
	conn *sql.DB
}

// queryer is satisfied by both *sql.DB and *sql.Tx, so lookups can run
// inside or outside a transaction.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const answerSelect = `
	SELECT a.id, a.question_id, a.user_id, COALESCE(u.username, ''), a.content, a.is_accepted, a.created_at
	FROM answers a
	LEFT JOIN users u ON u.id = a.user_id`

// scanAnswer maps a NULL user_id to model.AnonymousUserID.
func scanAnswer(row interface{ Scan(...any) error }, a *model.Answer) error {
	var authorID sql.NullInt64
	if err := row.Scan(&a.ID, &a.QuestionID, &authorID, &a.AuthorName, &a.Content, &a.IsAccepted, &a.CreatedAt); err != nil {
		return err
	}
	a.AuthorID = model.AnonymousUserID
	if authorID.Valid {
		a.AuthorID = authorID.Int64
	}
	return nil
}

// authorArg converts an author id into the value stored in user_id.
func authorArg(id int64) any {
	if id == model.AnonymousUserID {
		return nil
	}
	return id
}

// Create inserts an answer. Anonymous answers are stored with a NULL author.
func (s *AnswerDB) Create(ctx context.Context, answer *model.Answer) error {
	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now()
	}
	answer.CreatedAt = answer.CreatedAt.UTC()
	answer.IsAccepted = false

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO answers (question_id, user_id, content, is_accepted, created_at)
		 VALUES (?, ?, ?, 0, ?)`,
		answer.QuestionID,
		authorArg(answer.AuthorID),
		answer.Content,
		answer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating answer on question %d: %w", answer.QuestionID, err)
	}

	answer.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new answer id: %w", err)
	}
	return nil
}

func getAnswer(ctx context.Context, q queryer, id int64) (*model.Answer, error) {
	var a model.Answer
	err := scanAnswer(q.QueryRowContext(ctx, answerSelect+` WHERE a.id = ?`, id), &a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %d: %w", id, err)
	}
	return &a, nil
}

// GetByID retrieves a single answer by its ID.
func (s *AnswerDB) GetByID(ctx context.Context, id int64) (*model.Answer, error) {
	return getAnswer(ctx, s.conn, id)
}

// ListByQuestion returns a question's answers, oldest first.
func (s *AnswerDB) ListByQuestion(ctx context.Context, questionID int64) ([]model.Answer, error) {
	rows, err := s.conn.QueryContext(ctx,
		answerSelect+` WHERE a.question_id = ? ORDER BY a.created_at, a.id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for question %d: %w", questionID, err)
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := scanAnswer(rows, &a); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}

// Accept makes answerID the accepted answer of its question.
//
// TRANSACTION:
// Everything below runs on one *sql.Tx. If any statement fails, the deferred
// Rollback undoes the lot, so we can never end up with two accepted answers or
// with points moved for only one of the two authors. Once Commit succeeds the
// deferred Rollback is a no-op.
//
// Steps:
//  1. The currently accepted answer on the question, if any, loses the flag
//     and its author loses `penalty` points, floored at zero.
//  2. The target answer gains the flag and its author gains `award` points.
//
// Anonymous authors (NULL user_id) are skipped when adjusting points.
// Step 1 also covers the target itself, so accepting the answer that is
// already accepted debits then credits its author: max(p-penalty, 0)+award.
func (s *AnswerDB) Accept(ctx context.Context, answerID int64, award, penalty int) (*repository.AcceptResult, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning accept transaction: %w", err)
	}
	defer tx.Rollback()

	target, err := getAnswer(ctx, tx, answerID)
	if err != nil {
		return nil, err
	}

	result := &repository.AcceptResult{Answer: target}

	// Collect the previously accepted answers before touching anything.
	// Rows are fully drained and closed before the UPDATEs run on the same tx.
	type previous struct {
		id       int64
		authorID sql.NullInt64
	}
	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id FROM answers
		 WHERE question_id = ? AND is_accepted = 1`,
		target.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding accepted answer for question %d: %w", target.QuestionID, err)
	}
	var prevs []previous
	for rows.Next() {
		var p previous
		if err := rows.Scan(&p.id, &p.authorID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning accepted answer: %w", err)
		}
		prevs = append(prevs, p)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("sqlite: closing accepted answer rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accepted answers: %w", err)
	}

	for _, p := range prevs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE answers SET is_accepted = 0 WHERE id = ?`, p.id); err != nil {
			return nil, fmt.Errorf("sqlite: unaccepting answer %d: %w", p.id, err)
		}
		if p.authorID.Valid {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET points = MAX(points - ?, 0) WHERE id = ?`,
				penalty, p.authorID.Int64); err != nil {
				return nil, fmt.Errorf("sqlite: deducting points from user %d: %w", p.authorID.Int64, err)
			}
		}
		result.PreviousAnswerID = p.id
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE answers SET is_accepted = 1 WHERE id = ?`, target.ID); err != nil {
		return nil, fmt.Errorf("sqlite: accepting answer %d: %w", target.ID, err)
	}
	if !target.IsAnonymous() {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET points = points + ? WHERE id = ?`,
			award, target.AuthorID); err != nil {
			return nil, fmt.Errorf("sqlite: awarding points to user %d: %w", target.AuthorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing accept transaction: %w", err)
	}

	target.IsAccepted = true
	return result, nil
}
