package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/connectivity"
	"github.com/starford/laguz/internal/engine"
)

// Handler holds the API route handlers.
type Handler struct {
	engine  *engine.Engine
	monitor *connectivity.Monitor
}

// NewHandler creates a new Handler.
func NewHandler(eng *engine.Engine, mon *connectivity.Monitor) *Handler {
	return &Handler{engine: eng, monitor: mon}
}

func decodeValid[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return req, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(action+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.engine.Notes(r.Context())
	if err != nil {
		h.writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "total": len(notes)})
}

// GetNote handles GET /notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.engine.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveNote handles POST /notes and PUT /notes/{id}. The write is local-
// first; the response returns as soon as the local store is updated.
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[SaveNoteRequest](w, r)
	if !ok {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	note, err := h.engine.SaveNote(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, "save note", err)
		return
	}
	writeJSON(w, status, note)
}

// DeleteNote handles DELETE /notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListThreads handles GET /threads.
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.engine.Threads(r.Context())
	if err != nil {
		h.writeError(w, "list threads", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads, "total": len(threads)})
}

// GetThread handles GET /threads/{id}.
func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.engine.GetThread(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get thread", err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// SaveThread handles POST /threads and PUT /threads/{id}.
func (h *Handler) SaveThread(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[SaveThreadRequest](w, r)
	if !ok {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	thread, err := h.engine.SaveThread(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, "save thread", err)
		return
	}
	writeJSON(w, status, thread)
}

// DeleteThread handles DELETE /threads/{id}.
func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteThread(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLabels handles GET /labels.
func (h *Handler) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := h.engine.Labels(r.Context())
	if err != nil {
		h.writeError(w, "list labels", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"labels": labels, "total": len(labels)})
}

// SaveLabel handles POST /labels and PUT /labels/{id}.
func (h *Handler) SaveLabel(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeValid[SaveLabelRequest](w, r)
	if !ok {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	label, err := h.engine.SaveLabel(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, "save label", err)
		return
	}
	writeJSON(w, status, label)
}

// DeleteLabel handles DELETE /labels/{id}.
func (h *Handler) DeleteLabel(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteLabel(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "delete label", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /status. The snapshot is the only sync state the UI
// ever sees.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// RequestSync handles POST /sync, the explicit user-initiated refresh.
// A rejected request (already syncing, or offline) reports accepted=false.
func (h *Handler) RequestSync(w http.ResponseWriter, r *http.Request) {
	accepted := h.engine.RequestSync("user-refresh")
	writeJSON(w, http.StatusAccepted, SyncResponse{Accepted: accepted})
}

// Connectivity handles POST /connectivity, the platform reachability
// signal feeding the monitor.
func (h *Handler) Connectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.monitor.OnConnectivityChange(req.Online)
	w.WriteHeader(http.StatusNoContent)
}

// AppActive handles POST /app/active (foreground transition).
func (h *Handler) AppActive(w http.ResponseWriter, r *http.Request) {
	h.monitor.OnAppActive()
	w.WriteHeader(http.StatusNoContent)
}

// AppBackground handles POST /app/background.
func (h *Handler) AppBackground(w http.ResponseWriter, r *http.Request) {
	h.monitor.OnAppBackground()
	w.WriteHeader(http.StatusNoContent)
}
