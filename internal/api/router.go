package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/connectivity"
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/media"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *engine.Engine, mon *connectivity.Monitor, mediaStore *media.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng, mon)
	ah := NewAttachmentHandler(mediaStore)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.SaveNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.SaveNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Chat threads CRUD.
	r.Get("/threads", h.ListThreads)
	r.Post("/threads", h.SaveThread)
	r.Get("/threads/{id}", h.GetThread)
	r.Put("/threads/{id}", h.SaveThread)
	r.Delete("/threads/{id}", h.DeleteThread)

	// Labels CRUD.
	r.Get("/labels", h.ListLabels)
	r.Post("/labels", h.SaveLabel)
	r.Put("/labels/{id}", h.SaveLabel)
	r.Delete("/labels/{id}", h.DeleteLabel)

	// Sync control and status.
	r.Get("/status", h.Status)
	r.Post("/sync", h.RequestSync)
	r.Post("/connectivity", h.Connectivity)
	r.Post("/app/active", h.AppActive)
	r.Post("/app/background", h.AppBackground)

	// Attachments.
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{name}", ah.Download)
	r.Delete("/attachments/{name}", ah.Delete)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
