package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/repository"
	"github.com/sakif/studyhub/internal/validation"
)

// MsgNotYourTask is shown when a user toggles someone else's task.
const MsgNotYourTask = "You don't have permission to change that task."

// Due dates are kept as typed; "next friday" is as valid as "2025-06-01".
type taskForm struct {
	Subject string `form:"subject" validate:"required,notblank_,max=80"`
	Title   string `form:"title" validate:"required,notblank_,max=200"`
	DueDate string `form:"due_date" validate:"required,notblank_,max=20"`
}

// TaskService manages each user's to-do list. Every operation needs an
// identity and only ever touches that user's tasks.
type TaskService struct {
	tasks    repository.TaskRepository
	validate *validation.Validator
	logger   *slog.Logger
}

// NewTaskService returns a TaskService.
func NewTaskService(tasks repository.TaskRepository, validate *validation.Validator, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, validate: validate, logger: logger}
}

// AddTask validates and stores a new task owned by id.
func (s *TaskService) AddTask(ctx context.Context, id auth.Identity, subject, title, dueDate string) (*model.Task, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	form := taskForm{
		Subject: strings.TrimSpace(subject),
		Title:   strings.TrimSpace(title),
		DueDate: strings.TrimSpace(dueDate),
	}
	if err := s.validate.Struct(form); err != nil {
		return nil, err
	}

	task := &model.Task{
		OwnerID: id.UserID,
		Subject: form.Subject,
		Title:   form.Title,
		DueDate: form.DueDate,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task added",
		slog.Int64("task_id", task.ID),
		slog.Int64("user_id", id.UserID),
	)
	return task, nil
}

// ListTasks returns the tasks owned by id.
func (s *TaskService) ListTasks(ctx context.Context, id auth.Identity) ([]model.Task, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// ToggleTask flips the done flag of a task owned by id.
func (s *TaskService) ToggleTask(ctx context.Context, id auth.Identity, taskID int64) (*model.Task, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != id.UserID {
		return nil, apperror.Forbidden(MsgNotYourTask)
	}

	toggled, err := s.tasks.Toggle(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("toggling task: %w", err)
	}

	s.logger.Debug("task toggled",
		slog.Int64("task_id", taskID),
		slog.Bool("is_done", toggled.IsDone),
	)
	return toggled, nil
}
