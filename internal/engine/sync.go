package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/merge"
	"github.com/starford/laguz/internal/models"
)

// runCycle executes one full sync cycle: drain the pending queue, then
// reconcile each collection, then record the completion time. It runs on
// the engine loop goroutine, so cycles never overlap. Guests and offline
// engines never enter the syncing state.
//
// A failure in one collection is isolated: the remaining collections
// still reconcile. Only a local storage failure aborts the cycle, since
// no further fallback exists.
func (e *Engine) runCycle(ctx context.Context, reason string) {
	if !e.Online() {
		e.logger.Debug("engine: sync skipped, offline", slog.String("reason", reason))
		return
	}
	user := e.currentUser(ctx)
	if user.IsGuest {
		e.logger.Debug("engine: sync skipped, guest", slog.String("reason", reason))
		return
	}

	e.setSyncing(true)
	defer e.setSyncing(false)

	start := time.Now().UTC()
	e.logger.Info("engine: sync started",
		slog.String("reason", reason),
		slog.String("user", user.ID),
		slog.Int("pending", e.queue.Len()))
	e.notify.PublishEntityEvent("sync.started", "")

	drained, err := e.queue.Drain(ctx, e.replay)
	if err != nil {
		e.logger.Error("engine: queue drain aborted", slog.String("error", err.Error()))
		return
	}

	failed := 0
	for _, c := range []struct {
		name models.Collection
		fn   func(context.Context, string) error
	}{
		{models.CollectionNotes, e.syncNotes},
		{models.CollectionThreads, e.syncThreads},
		{models.CollectionLabels, e.syncLabels},
	} {
		if err := c.fn(ctx, user.ID); err != nil {
			failed++
			e.logger.Warn("engine: collection sync failed",
				slog.String("collection", string(c.name)),
				slog.String("error", err.Error()))
		}
	}

	now := time.Now().UTC()
	if err := e.store.SetLastSyncTime(now); err != nil {
		e.logger.Error("engine: persist lastSyncTime failed", slog.String("error", err.Error()))
		return
	}
	e.setLastSync(now)

	e.logger.Info("engine: sync completed",
		slog.Duration("took", now.Sub(start)),
		slog.Int("replayed", drained.Replayed),
		slog.Int("dropped", drained.Dropped),
		slog.Int("failed_collections", failed),
		slog.Int("pending", e.queue.Len()))
	e.notify.PublishEntityEvent("sync.completed", "")
}

// syncCollection reconciles one collection: read both snapshots, merge
// by last-write-wins, persist the merged state in display order, and
// re-enqueue local winners as pending updates.
func syncCollection[E merge.Entity](
	ctx context.Context,
	e *Engine,
	collection models.Collection,
	loadLocal func() ([]E, error),
	listRemote func(context.Context) ([]E, error),
	saveLocal func([]E) error,
	order func([]E),
) error {
	local, err := loadLocal()
	if err != nil {
		return err
	}
	remoteItems, err := listRemote(ctx)
	if err != nil {
		return fmt.Errorf("list remote: %w", err)
	}

	merged, winners := merge.Merge(local, remoteItems)
	order(merged)

	if err := saveLocal(merged); err != nil {
		return err
	}

	for _, w := range winners {
		payload, merr := json.Marshal(w)
		if merr != nil {
			return fmt.Errorf("encode winner: %w", merr)
		}
		if err := e.queue.Enqueue(models.OpUpdate, collection, w.EntityID(), payload); err != nil {
			return err
		}
	}
	if len(winners) > 0 {
		e.logger.Debug("engine: local winners re-enqueued",
			slog.String("collection", string(collection)),
			slog.Int("count", len(winners)))
	}
	return nil
}

func (e *Engine) syncNotes(ctx context.Context, userID string) error {
	return syncCollection(ctx, e, models.CollectionNotes,
		func() ([]models.Note, error) { return e.store.Notes(userID) },
		func(ctx context.Context) ([]models.Note, error) { return e.remote.ListNotes(ctx, userID) },
		func(notes []models.Note) error { return e.store.SetNotes(userID, notes) },
		merge.SortByUpdatedAtDesc[models.Note],
	)
}

func (e *Engine) syncThreads(ctx context.Context, userID string) error {
	return syncCollection(ctx, e, models.CollectionThreads,
		func() ([]models.ChatThread, error) { return e.store.Threads(userID) },
		func(ctx context.Context) ([]models.ChatThread, error) { return e.remote.ListThreads(ctx, userID) },
		func(threads []models.ChatThread) error { return e.store.SetThreads(userID, threads) },
		merge.SortByUpdatedAtDesc[models.ChatThread],
	)
}

func (e *Engine) syncLabels(ctx context.Context, userID string) error {
	return syncCollection(ctx, e, models.CollectionLabels,
		func() ([]models.Label, error) { return e.store.Labels(userID) },
		func(ctx context.Context) ([]models.Label, error) { return e.remote.ListLabels(ctx, userID) },
		func(labels []models.Label) error { return e.store.SetLabels(userID, labels) },
		func(labels []models.Label) {
			merge.SortByName(labels, func(l models.Label) string { return l.Name })
		},
	)
}

// replay pushes one queued operation to the remote store. A nil return
// removes the entry from the queue; apperr classification decides
// between retry and drop for failures. Deleting an entity the remote
// never had counts as success.
func (e *Engine) replay(ctx context.Context, op models.PendingOperation) error {
	switch op.Collection {
	case models.CollectionNotes:
		if op.Kind == models.OpDelete {
			return ignoreNotFound(e.remote.DeleteNote(ctx, op.EntityID))
		}
		var n models.Note
		if err := json.Unmarshal(op.Payload, &n); err != nil {
			return fmt.Errorf("engine: decode pending note: %w", err)
		}
		_, err := e.pushNote(ctx, op.Kind, n)
		return err

	case models.CollectionThreads:
		if op.Kind == models.OpDelete {
			return ignoreNotFound(e.remote.DeleteThread(ctx, op.EntityID))
		}
		var t models.ChatThread
		if err := json.Unmarshal(op.Payload, &t); err != nil {
			return fmt.Errorf("engine: decode pending thread: %w", err)
		}
		_, err := e.pushThread(ctx, op.Kind, t)
		return err

	case models.CollectionLabels:
		if op.Kind == models.OpDelete {
			return ignoreNotFound(e.remote.DeleteLabel(ctx, op.EntityID))
		}
		var l models.Label
		if err := json.Unmarshal(op.Payload, &l); err != nil {
			return fmt.Errorf("engine: decode pending label: %w", err)
		}
		_, err := e.pushLabel(ctx, op.Kind, l)
		return err
	}
	return fmt.Errorf("engine: unknown collection %q", op.Collection)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}
