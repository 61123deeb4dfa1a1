package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
)

var _ repository.TaskRepository = (*TaskDB)(nil)

// TaskDB stores personal tasks.
type TaskDB struct {
	conn *sql.DB
}

const taskColumns = `id, user_id, subject, title, due_date, is_done`

func scanTask(row interface{ Scan(...any) error }, t *model.Task) error {
	return row.Scan(&t.ID, &t.OwnerID, &t.Subject, &t.Title, &t.DueDate, &t.IsDone)
}

// Create inserts a task. New tasks always start not done.
func (s *TaskDB) Create(ctx context.Context, task *model.Task) error {
	task.IsDone = false

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO tasks (user_id, subject, title, due_date, is_done)
		 VALUES (?, ?, ?, ?, 0)`,
		task.OwnerID,
		task.Subject,
		task.Title,
		task.DueDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating task for user %d: %w", task.OwnerID, err)
	}

	task.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new task id: %w", err)
	}
	return nil
}

// GetByID retrieves a single task by its ID.
func (s *TaskDB) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	var t model.Task
	err := scanTask(s.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id), &t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %d: %w", id, err)
	}
	return &t, nil
}

// ListByUser returns a user's tasks in insertion order.
func (s *TaskDB) ListByUser(ctx context.Context, userID int64) ([]model.Task, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks for user %d: %w", userID, err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := scanTask(rows, &t); err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tasks: %w", err)
	}
	return tasks, nil
}

// Toggle flips is_done in a single statement and returns the updated task.
func (s *TaskDB) Toggle(ctx context.Context, id int64) (*model.Task, error) {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE tasks SET is_done = NOT is_done WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: toggling task %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("task", id)
	}

	return s.GetByID(ctx, id)
}
