package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/merge"
	"github.com/starford/laguz/internal/models"
)

// The immediate write path: every save/delete hits the local store first
// so UI-visible state updates regardless of network, then opportunistically
// pushes to the remote store, falling back to the pending queue. Remote
// failures never surface to the caller; only local storage failures do.

func (e *Engine) enqueueEntity(kind models.OpKind, collection models.Collection, entityID string, entity any) error {
	payload, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("engine: encode pending payload: %w", err)
	}
	return e.queue.Enqueue(kind, collection, entityID, payload)
}

// handlePushFailure applies the error taxonomy to a failed remote write:
// denied writes are dropped with a warning (retrying cannot succeed
// without a credential change), everything else is enqueued for replay.
func (e *Engine) handlePushFailure(err error, kind models.OpKind, collection models.Collection, entityID string, entity any) error {
	if errors.Is(err, apperr.ErrDenied) {
		e.logger.Warn("engine: remote write denied, dropping",
			slog.String("collection", string(collection)),
			slog.String("entity", entityID))
		return nil
	}
	e.logger.Debug("engine: remote write failed, enqueueing",
		slog.String("collection", string(collection)),
		slog.String("entity", entityID),
		slog.String("error", err.Error()))
	return e.enqueueEntity(kind, collection, entityID, entity)
}

// stamp fills id/timestamps for a write. CreatedAt is carried forward
// from the stored copy, so an update can never rewrite the creation
// time. UpdatedAt stays monotonically non-decreasing against both the
// clock and the stored copy; a caller-supplied future timestamp is
// preserved.
func stamp(id string, createdAt, updatedAt, prevCreated, prevUpdated time.Time) (newID string, isNew bool, c, u time.Time) {
	now := time.Now().UTC()
	isNew = id == ""
	if isNew {
		id = uuid.NewString()
	}
	c = prevCreated
	if c.IsZero() {
		c = createdAt
	}
	if c.IsZero() {
		c = now
	}
	u = updatedAt
	if u.Before(now) {
		u = now
	}
	if u.Before(prevUpdated) {
		u = prevUpdated
	}
	return id, isNew, c, u
}

// storedNote returns the stored copy for id, or a zero Note when absent.
func (e *Engine) storedNote(userID, id string) (models.Note, error) {
	if id == "" {
		return models.Note{}, nil
	}
	notes, err := e.store.Notes(userID)
	if err != nil {
		return models.Note{}, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Note{}, nil
}

// storedThread returns the stored copy for id, or a zero ChatThread.
func (e *Engine) storedThread(userID, id string) (models.ChatThread, error) {
	if id == "" {
		return models.ChatThread{}, nil
	}
	threads, err := e.store.Threads(userID)
	if err != nil {
		return models.ChatThread{}, err
	}
	for _, t := range threads {
		if t.ID == id {
			return t, nil
		}
	}
	return models.ChatThread{}, nil
}

// SaveNote writes the note locally and opportunistically pushes it
// remotely. A blank ID means create. The returned note carries the final
// id: when a remote create mints a different id, that id is adopted for
// all further writes of the logical note.
func (e *Engine) SaveNote(ctx context.Context, n models.Note) (models.Note, error) {
	user := e.currentUser(ctx)

	prev, err := e.storedNote(user.ID, n.ID)
	if err != nil {
		return models.Note{}, err
	}
	var isNew bool
	n.ID, isNew, n.CreatedAt, n.UpdatedAt = stamp(n.ID, n.CreatedAt, n.UpdatedAt, prev.CreatedAt, prev.UpdatedAt)
	n.OwnerID = user.ID

	if err := e.store.UpsertNote(user.ID, n); err != nil {
		return models.Note{}, err
	}
	e.notify.PublishEntityEvent("note.saved", n.ID)

	if user.IsGuest {
		return n, nil
	}

	kind := models.OpUpdate
	if isNew {
		kind = models.OpCreate
	}
	if !e.Online() {
		return n, e.enqueueEntity(kind, models.CollectionNotes, n.ID, n)
	}

	pushed, err := e.pushNote(ctx, kind, n)
	if err != nil {
		return n, e.handlePushFailure(err, kind, models.CollectionNotes, n.ID, n)
	}
	if pushed.ID != "" && pushed.ID != n.ID {
		if err := e.store.DeleteNote(user.ID, n.ID); err != nil {
			return n, err
		}
		n.ID = pushed.ID
		if err := e.store.UpsertNote(user.ID, n); err != nil {
			return n, err
		}
		e.notify.PublishEntityEvent("note.saved", n.ID)
	}
	return n, nil
}

// pushNote sends a note write to the remote store, converting a
// not-found on update into a create.
func (e *Engine) pushNote(ctx context.Context, kind models.OpKind, n models.Note) (models.Note, error) {
	if kind == models.OpCreate {
		return e.remote.CreateNote(ctx, n)
	}
	out, err := e.remote.UpdateNote(ctx, n.ID, n)
	if errors.Is(err, apperr.ErrNotFound) {
		return e.remote.CreateNote(ctx, n)
	}
	return out, err
}

// DeleteNote removes the note locally and best-effort remotely.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	user := e.currentUser(ctx)
	if err := e.store.DeleteNote(user.ID, id); err != nil {
		return err
	}
	e.notify.PublishEntityEvent("note.deleted", id)

	if user.IsGuest {
		return nil
	}
	if !e.Online() {
		return e.queue.Enqueue(models.OpDelete, models.CollectionNotes, id, nil)
	}
	err := e.remote.DeleteNote(ctx, id)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return e.handlePushFailure(err, models.OpDelete, models.CollectionNotes, id, nil)
}

// SaveThread writes the chat thread locally and opportunistically
// pushes it remotely.
func (e *Engine) SaveThread(ctx context.Context, t models.ChatThread) (models.ChatThread, error) {
	user := e.currentUser(ctx)

	prev, err := e.storedThread(user.ID, t.ID)
	if err != nil {
		return models.ChatThread{}, err
	}
	var isNew bool
	t.ID, isNew, t.CreatedAt, t.UpdatedAt = stamp(t.ID, t.CreatedAt, t.UpdatedAt, prev.CreatedAt, prev.UpdatedAt)
	t.OwnerID = user.ID

	if err := e.store.UpsertThread(user.ID, t); err != nil {
		return models.ChatThread{}, err
	}
	e.notify.PublishEntityEvent("thread.saved", t.ID)

	if user.IsGuest {
		return t, nil
	}

	kind := models.OpUpdate
	if isNew {
		kind = models.OpCreate
	}
	if !e.Online() {
		return t, e.enqueueEntity(kind, models.CollectionThreads, t.ID, t)
	}

	pushed, err := e.pushThread(ctx, kind, t)
	if err != nil {
		return t, e.handlePushFailure(err, kind, models.CollectionThreads, t.ID, t)
	}
	if pushed.ID != "" && pushed.ID != t.ID {
		if err := e.store.DeleteThread(user.ID, t.ID); err != nil {
			return t, err
		}
		t.ID = pushed.ID
		if err := e.store.UpsertThread(user.ID, t); err != nil {
			return t, err
		}
		e.notify.PublishEntityEvent("thread.saved", t.ID)
	}
	return t, nil
}

func (e *Engine) pushThread(ctx context.Context, kind models.OpKind, t models.ChatThread) (models.ChatThread, error) {
	if kind == models.OpCreate {
		return e.remote.CreateThread(ctx, t)
	}
	out, err := e.remote.UpdateThread(ctx, t.ID, t)
	if errors.Is(err, apperr.ErrNotFound) {
		return e.remote.CreateThread(ctx, t)
	}
	return out, err
}

// DeleteThread removes the thread locally and best-effort remotely.
func (e *Engine) DeleteThread(ctx context.Context, id string) error {
	user := e.currentUser(ctx)
	if err := e.store.DeleteThread(user.ID, id); err != nil {
		return err
	}
	e.notify.PublishEntityEvent("thread.deleted", id)

	if user.IsGuest {
		return nil
	}
	if !e.Online() {
		return e.queue.Enqueue(models.OpDelete, models.CollectionThreads, id, nil)
	}
	err := e.remote.DeleteThread(ctx, id)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return e.handlePushFailure(err, models.OpDelete, models.CollectionThreads, id, nil)
}

// SaveLabel writes the label locally and opportunistically pushes it
// remotely. Label names are unique per owner; a clashing name on a
// different label returns apperr.ErrAlreadyExists.
func (e *Engine) SaveLabel(ctx context.Context, l models.Label) (models.Label, error) {
	user := e.currentUser(ctx)

	existing, err := e.store.Labels(user.ID)
	if err != nil {
		return models.Label{}, err
	}
	var prev models.Label
	for _, other := range existing {
		if l.ID != "" && other.ID == l.ID {
			prev = other
			continue
		}
		if other.Name == l.Name {
			return models.Label{}, fmt.Errorf("label %q: %w", l.Name, apperr.ErrAlreadyExists)
		}
	}

	var isNew bool
	l.ID, isNew, l.CreatedAt, l.UpdatedAt = stamp(l.ID, l.CreatedAt, l.UpdatedAt, prev.CreatedAt, prev.UpdatedAt)
	l.OwnerID = user.ID

	if err := e.store.UpsertLabel(user.ID, l); err != nil {
		return models.Label{}, err
	}
	e.notify.PublishEntityEvent("label.saved", l.ID)

	if user.IsGuest {
		return l, nil
	}

	kind := models.OpUpdate
	if isNew {
		kind = models.OpCreate
	}
	if !e.Online() {
		return l, e.enqueueEntity(kind, models.CollectionLabels, l.ID, l)
	}

	pushed, err := e.pushLabel(ctx, kind, l)
	if err != nil {
		return l, e.handlePushFailure(err, kind, models.CollectionLabels, l.ID, l)
	}
	if pushed.ID != "" && pushed.ID != l.ID {
		if err := e.store.DeleteLabel(user.ID, l.ID); err != nil {
			return l, err
		}
		l.ID = pushed.ID
		if err := e.store.UpsertLabel(user.ID, l); err != nil {
			return l, err
		}
		e.notify.PublishEntityEvent("label.saved", l.ID)
	}
	return l, nil
}

func (e *Engine) pushLabel(ctx context.Context, kind models.OpKind, l models.Label) (models.Label, error) {
	if kind == models.OpCreate {
		return e.remote.CreateLabel(ctx, l)
	}
	out, err := e.remote.UpdateLabel(ctx, l.ID, l)
	if errors.Is(err, apperr.ErrNotFound) {
		return e.remote.CreateLabel(ctx, l)
	}
	return out, err
}

// DeleteLabel removes the label locally and best-effort remotely.
func (e *Engine) DeleteLabel(ctx context.Context, id string) error {
	user := e.currentUser(ctx)
	if err := e.store.DeleteLabel(user.ID, id); err != nil {
		return err
	}
	e.notify.PublishEntityEvent("label.deleted", id)

	if user.IsGuest {
		return nil
	}
	if !e.Online() {
		return e.queue.Enqueue(models.OpDelete, models.CollectionLabels, id, nil)
	}
	err := e.remote.DeleteLabel(ctx, id)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return e.handlePushFailure(err, models.OpDelete, models.CollectionLabels, id, nil)
}

// Notes returns the current user's notes, newest first. The caller gets
// a copy for rendering; the engine keeps ownership of durable state.
func (e *Engine) Notes(ctx context.Context) ([]models.Note, error) {
	user := e.currentUser(ctx)
	notes, err := e.store.Notes(user.ID)
	if err != nil {
		return nil, err
	}
	merge.SortByUpdatedAtDesc(notes)
	return notes, nil
}

// Threads returns the current user's chat threads, newest first.
func (e *Engine) Threads(ctx context.Context) ([]models.ChatThread, error) {
	user := e.currentUser(ctx)
	threads, err := e.store.Threads(user.ID)
	if err != nil {
		return nil, err
	}
	merge.SortByUpdatedAtDesc(threads)
	return threads, nil
}

// GetNote returns one note by id, or apperr.ErrNotFound.
func (e *Engine) GetNote(ctx context.Context, id string) (models.Note, error) {
	user := e.currentUser(ctx)
	notes, err := e.store.Notes(user.ID)
	if err != nil {
		return models.Note{}, err
	}
	for _, n := range notes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Note{}, apperr.ErrNotFound
}

// GetThread returns one chat thread by id, or apperr.ErrNotFound.
func (e *Engine) GetThread(ctx context.Context, id string) (models.ChatThread, error) {
	user := e.currentUser(ctx)
	threads, err := e.store.Threads(user.ID)
	if err != nil {
		return models.ChatThread{}, err
	}
	for _, t := range threads {
		if t.ID == id {
			return t, nil
		}
	}
	return models.ChatThread{}, apperr.ErrNotFound
}

// Labels returns the current user's labels, sorted by name.
func (e *Engine) Labels(ctx context.Context) ([]models.Label, error) {
	user := e.currentUser(ctx)
	labels, err := e.store.Labels(user.ID)
	if err != nil {
		return nil, err
	}
	merge.SortByName(labels, func(l models.Label) string { return l.Name })
	return labels, nil
}
