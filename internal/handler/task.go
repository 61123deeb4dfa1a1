package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/studyhub/internal/auth"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/service"
)

const msgTaskAdded = "Task added."

// TaskHandler serves the personal task list. All routes sit behind
// auth.RequireLogin.
type TaskHandler struct {
	tasks  *service.TaskService
	views  *Renderer
	logger *slog.Logger
}

// NewTaskHandler returns a TaskHandler.
func NewTaskHandler(tasks *service.TaskService, views *Renderer, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, views: views, logger: logger}
}

type tasksPage struct {
	Tasks []model.Task
}

// HTTP: GET /tasks
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())

	tasks, err := h.tasks.ListTasks(r.Context(), id)
	if err != nil {
		redirectWithError(w, r, h.logger, "/", err)
		return
	}
	h.views.render(w, r, http.StatusOK, pageTasks, "My tasks", tasksPage{Tasks: tasks})
}

// HTTP: POST /tasks
func (h *TaskHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/tasks", msgSomethingWrong)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	_, err := h.tasks.AddTask(r.Context(), id,
		r.PostForm.Get("subject"),
		r.PostForm.Get("title"),
		r.PostForm.Get("due_date"),
	)
	if err != nil {
		redirectWithError(w, r, h.logger, "/tasks", err)
		return
	}
	redirect(w, r, "/tasks", msgTaskAdded)
}

// HTTP: GET /toggle_task/{id}
func (h *TaskHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	taskID, err := pathID(r, "id", "task")
	if err != nil {
		redirectWithError(w, r, h.logger, "/tasks", err)
		return
	}

	id, _ := auth.IdentityFromContext(r.Context())
	if _, err := h.tasks.ToggleTask(r.Context(), id, taskID); err != nil {
		redirectWithError(w, r, h.logger, "/tasks", err)
		return
	}
	redirect(w, r, "/tasks", "")
}
