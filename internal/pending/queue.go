// Package pending implements the durable, ordered log of remote writes
// that could not reach the remote store and must be replayed later.
package pending

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/localstore"
	"github.com/starford/laguz/internal/models"
)

// DefaultRetryCeiling bounds replay attempts per operation. An operation
// failing this many times is dropped from the queue and reported; the
// local copy stays intact and re-enqueues on the next edit.
const DefaultRetryCeiling = 3

// Queue is the pending-operation queue. The full log is persisted to the
// local store after every mutation, so a restart mid-drain resumes
// without duplicated or lost entries.
type Queue struct {
	mu      sync.Mutex
	store   *localstore.Store
	ops     []models.PendingOperation
	ceiling int
	logger  *slog.Logger
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Replayed  int
	Dropped   int
	Remaining int
}

// NewQueue loads any persisted operations and returns a ready queue.
// A ceiling < 1 falls back to DefaultRetryCeiling.
func NewQueue(store *localstore.Store, ceiling int, logger *slog.Logger) (*Queue, error) {
	if ceiling < 1 {
		ceiling = DefaultRetryCeiling
	}
	ops, err := store.PendingOps()
	if err != nil {
		return nil, err
	}
	return &Queue{store: store, ops: ops, ceiling: ceiling, logger: logger}, nil
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Ops returns a copy of the queued operations in enqueue order.
func (q *Queue) Ops() []models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PendingOperation, len(q.ops))
	copy(out, q.ops)
	return out
}

// Enqueue appends an operation with a zero retry count.
//
// Writes for the same entity coalesce instead of stacking: a later write
// of the same kind replaces the earlier unsent payload, an update after
// an unsent create folds into the create, and a delete after an unsent
// create cancels both (the remote store never saw the entity).
func (q *Queue) Enqueue(kind models.OpKind, collection models.Collection, entityID string, payload json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	for i := range q.ops {
		op := &q.ops[i]
		if op.Collection != collection || op.EntityID != entityID {
			continue
		}
		switch {
		case kind == models.OpDelete && op.Kind == models.OpCreate:
			q.ops = append(q.ops[:i], q.ops[i+1:]...)
			return q.persistLocked()
		case kind == models.OpDelete:
			op.Kind = models.OpDelete
			op.Payload = payload
			op.EnqueuedAt = now
			op.RetryCount = 0
			return q.persistLocked()
		case op.Kind == models.OpCreate || op.Kind == kind:
			// Keep the create kind; the newer payload supersedes.
			op.Payload = payload
			op.EnqueuedAt = now
			op.RetryCount = 0
			return q.persistLocked()
		}
	}

	q.ops = append(q.ops, models.PendingOperation{
		ID:         uuid.NewString(),
		Kind:       kind,
		Collection: collection,
		EntityID:   entityID,
		Payload:    payload,
		EnqueuedAt: now,
	})
	return q.persistLocked()
}

// Drain replays queued operations in enqueue order. Successful entries
// are removed; failures increment the retry count; entries hitting the
// retry ceiling or failing with apperr.ErrDenied are dropped and
// reported. Operations enqueued while a drain is running are left for
// the next cycle.
//
// The queue lock is not held across replay calls, so immediate-path
// writes can still enqueue while a drain is in flight.
func (q *Queue) Drain(ctx context.Context, replay func(context.Context, models.PendingOperation) error) (DrainResult, error) {
	var res DrainResult

	q.mu.Lock()
	snapshot := make([]models.PendingOperation, len(q.ops))
	copy(snapshot, q.ops)
	q.mu.Unlock()

	for _, op := range snapshot {
		err := replay(ctx, op)

		q.mu.Lock()
		idx := q.indexLocked(op.ID)
		if idx < 0 {
			q.mu.Unlock()
			continue
		}
		current := &q.ops[idx]

		// A write that superseded this entry mid-flight must survive the
		// drain untouched: the outcome, success or failure, applies only
		// to the payload that was replayed.
		if !current.EnqueuedAt.Equal(op.EnqueuedAt) {
			q.mu.Unlock()
			continue
		}

		switch {
		case err == nil:
			q.ops = append(q.ops[:idx], q.ops[idx+1:]...)
			res.Replayed++
		case errors.Is(err, apperr.ErrDenied):
			q.logger.Warn("pending: dropping denied operation",
				slog.String("op", string(op.Kind)),
				slog.String("collection", string(op.Collection)),
				slog.String("entity", op.EntityID))
			q.ops = append(q.ops[:idx], q.ops[idx+1:]...)
			res.Dropped++
		default:
			current.RetryCount++
			if current.RetryCount >= q.ceiling {
				q.logger.Warn("pending: retry ceiling exceeded, dropping",
					slog.String("op", string(op.Kind)),
					slog.String("collection", string(op.Collection)),
					slog.String("entity", op.EntityID),
					slog.Int("retries", current.RetryCount))
				q.ops = append(q.ops[:idx], q.ops[idx+1:]...)
				res.Dropped++
			} else {
				q.logger.Debug("pending: replay failed, will retry",
					slog.String("entity", op.EntityID),
					slog.Int("retries", current.RetryCount),
					slog.String("error", err.Error()))
			}
		}

		perr := q.persistLocked()
		q.mu.Unlock()
		if perr != nil {
			return res, perr
		}
	}

	q.mu.Lock()
	res.Remaining = len(q.ops)
	q.mu.Unlock()
	return res, nil
}

func (q *Queue) indexLocked(opID string) int {
	for i := range q.ops {
		if q.ops[i].ID == opID {
			return i
		}
	}
	return -1
}

func (q *Queue) persistLocked() error {
	return q.store.SetPendingOps(q.ops)
}
