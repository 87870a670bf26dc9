// Package remote defines the CRUD contract against the remote data store
// and the authentication collaborator, plus an HTTP implementation.
//
// The client owns error classification: every failure surfaces as one of
// the apperr sentinels (ErrUnavailable, ErrNotFound, ErrDenied) so the
// engine never inspects transports or status codes.
package remote

import (
	"context"

	"github.com/starford/laguz/internal/models"
)

// Client is the remote CRUD contract for the three synchronized
// collections. Implementations must classify errors (see package doc)
// and apply their own per-call timeouts; the engine treats any failure
// as a signal to enqueue, never to retry in place.
type Client interface {
	// CurrentUser resolves the authenticated identity. A nil user with a
	// nil error means signed out; the engine treats that the same as a
	// guest (local-only mode).
	CurrentUser(ctx context.Context) (*models.User, error)

	ListNotes(ctx context.Context, ownerID string) ([]models.Note, error)
	CreateNote(ctx context.Context, n models.Note) (models.Note, error)
	UpdateNote(ctx context.Context, id string, n models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	ListThreads(ctx context.Context, ownerID string) ([]models.ChatThread, error)
	CreateThread(ctx context.Context, t models.ChatThread) (models.ChatThread, error)
	UpdateThread(ctx context.Context, id string, t models.ChatThread) (models.ChatThread, error)
	DeleteThread(ctx context.Context, id string) error

	ListLabels(ctx context.Context, ownerID string) ([]models.Label, error)
	CreateLabel(ctx context.Context, l models.Label) (models.Label, error)
	UpdateLabel(ctx context.Context, id string, l models.Label) (models.Label, error)
	DeleteLabel(ctx context.Context, id string) error
}
