package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/media"
)

var allowedMediaExt = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {},
	".svg": {}, ".pdf": {}, ".m4a": {}, ".mp3": {}, ".wav": {},
}

// AttachmentHandler serves note media uploads and downloads.
type AttachmentHandler struct {
	store *media.Store
}

// NewAttachmentHandler creates an AttachmentHandler over the media store.
func NewAttachmentHandler(store *media.Store) *AttachmentHandler {
	return &AttachmentHandler{store: store}
}

// Upload handles POST /attachments (multipart, field "file"). The
// returned name is the media reference to carry on a note.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 25<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedMediaExt[ext]; !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unsupported media type: "+ext))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}
	if err := h.store.Save(name, data); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"name": name,
		"size": len(data),
		"url":  "/api/attachments/" + name,
	})
}

// Download handles GET /attachments/{name}.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.store.Open(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// Delete handles DELETE /attachments/{name}.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "name")); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttachmentHandler) writeStoreError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
}
