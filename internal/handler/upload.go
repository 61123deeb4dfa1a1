package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/studyhub/internal/upload"
)

// UploadHandler serves files from the upload store.
type UploadHandler struct {
	store  *upload.Store
	logger *slog.Logger
}

// NewUploadHandler returns an UploadHandler reading from store.
func NewUploadHandler(store *upload.Store, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// HTTP: GET /uploads/{filename}
//
// Missing files are a plain 404. http.ServeContent picks the content type
// from the extension and handles Range and If-Modified-Since.
func (h *UploadHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	f, info, err := h.store.Open(name)
	if err != nil {
		if !errors.Is(err, upload.ErrNotFound) {
			h.logger.Error("failed to open upload",
				slog.String("filename", name),
				slog.String("error", err.Error()),
			)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
