package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/studyhub/internal/apperror"
)

const msgSomethingWrong = "Something went wrong. Please try again."

// redirect sends the browser to path with a flash message (if any).
// 303 makes the browser follow a POST with a GET.
func redirect(w http.ResponseWriter, r *http.Request, path, message string) {
	if message != "" {
		setFlash(w, r, message)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError is the single place errors leave the application.
//
// A typed *apperror.AppError carries a message written for users, which is
// flashed as is. Anything else is unexpected: it is logged with the request
// details and the user only sees a generic message.
func redirectWithError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, path string, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		redirect(w, r, path, msgSomethingWrong)
		return
	}

	if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrForbidden) {
		logger.Debug("request refused",
			slog.String("path", r.URL.Path),
			slog.String("reason", appErr.Message),
		)
	}
	redirect(w, r, path, appErr.Message)
}

// pathID reads a numeric chi URL parameter. Anything that isn't a positive
// integer is reported as NotFound for the named resource.
func pathID(r *http.Request, param, resource string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NotFound(resource, raw)
	}
	return id, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
