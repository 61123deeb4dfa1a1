package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/studyhub/internal/apperror"
	"github.com/sakif/studyhub/internal/model"
	"github.com/sakif/studyhub/internal/service"
)

// GradeHandler serves the grade projection form.
type GradeHandler struct {
	grades *service.GradeService
	views  *Renderer
	logger *slog.Logger
}

// NewGradeHandler returns a GradeHandler.
func NewGradeHandler(grades *service.GradeService, views *Renderer, logger *slog.Logger) *GradeHandler {
	return &GradeHandler{grades: grades, views: views, logger: logger}
}

type gradesPage struct {
	Form   url.Values
	Result *model.GradeProjection
}

// HTTP: GET /grades
func (h *GradeHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, pageGrades, "Grade projector", gradesPage{})
}

// HTTP: POST /grades
//
// Unlike the other forms this one re-renders in place: bad input shows the
// message next to the submitted values and no result, always with 200.
func (h *GradeHandler) HandleProject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.views.render(w, r, http.StatusOK, pageGrades, "Grade projector", gradesPage{}, service.MsgGradeInput)
		return
	}

	page := gradesPage{Form: r.PostForm}
	result, err := h.grades.ProjectForm(r.PostForm)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			h.logger.Error("grade projection failed", slog.String("error", err.Error()))
		}
		h.views.render(w, r, http.StatusOK, pageGrades, "Grade projector", page, apperror.MessageOf(err, service.MsgGradeInput))
		return
	}

	page.Result = result
	h.views.render(w, r, http.StatusOK, pageGrades, "Grade projector", page)
}
