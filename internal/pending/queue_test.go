package pending

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/localstore"
	"github.com/starford/laguz/internal/models"
)

func testQueue(t *testing.T) (*Queue, *localstore.Store) {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-queue-test-*.db")
	require.NoError(t, err)
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	kv, err := localstore.Open(dbFile.Name())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := localstore.NewStore(kv)
	q, err := NewQueue(store, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return q, store
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestEnqueuePersistsAcrossRestart(t *testing.T) {
	q, store := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "n1", payload(t, map[string]string{"id": "n1"})))
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionLabels, "l1", payload(t, map[string]string{"id": "l1"})))

	// A fresh queue over the same store sees the same log.
	restarted, err := NewQueue(store, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ops := restarted.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, "n1", ops[0].EntityID)
	assert.Equal(t, models.OpCreate, ops[0].Kind)
	assert.Equal(t, "l1", ops[1].EntityID)
}

func TestEnqueueCoalescesSameKind(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v2"})))

	ops := q.Ops()
	require.Len(t, ops, 1)
	assert.Contains(t, string(ops[0].Payload), "v2")
	assert.Equal(t, 0, ops[0].RetryCount, "superseding payload resets the retry count")
}

func TestEnqueueUpdateFoldsIntoUnsentCreate(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v2"})))

	ops := q.Ops()
	require.Len(t, ops, 1)
	// The remote never saw the entity, so the write must stay a create.
	assert.Equal(t, models.OpCreate, ops[0].Kind)
	assert.Contains(t, string(ops[0].Payload), "v2")
}

func TestEnqueueDeleteCancelsUnsentCreate(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))
	require.NoError(t, q.Enqueue(models.OpDelete, models.CollectionNotes, "n1", nil))

	assert.Equal(t, 0, q.Len(), "create+delete of an unsent entity nets to nothing")
}

func TestEnqueueDeleteReplacesUnsentUpdate(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))
	require.NoError(t, q.Enqueue(models.OpDelete, models.CollectionNotes, "n1", nil))

	ops := q.Ops()
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpDelete, ops[0].Kind)
}

func TestEnqueueSameIDDifferentCollectionsDoNotCoalesce(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "x", payload(t, map[string]string{"v": "note"})))
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionThreads, "x", payload(t, map[string]string{"v": "thread"})))

	assert.Equal(t, 2, q.Len())
}

func TestDrainRemovesReplayedOps(t *testing.T) {
	q, _ := testQueue(t)

	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "n1", payload(t, map[string]string{"id": "n1"})))
	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "n2", payload(t, map[string]string{"id": "n2"})))

	var replayed []string
	res, err := q.Drain(context.Background(), func(_ context.Context, op models.PendingOperation) error {
		replayed = append(replayed, op.EntityID)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"n1", "n2"}, replayed, "drain preserves enqueue order")
	assert.Equal(t, DrainResult{Replayed: 2, Dropped: 0, Remaining: 0}, res)
	assert.Equal(t, 0, q.Len())
}

func TestDrainRetriesUntilCeiling(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"id": "n1"})))

	fail := func(context.Context, models.PendingOperation) error {
		return apperr.ErrUnavailable
	}

	// Two failed drains leave the op queued with a growing retry count.
	for i := 1; i < DefaultRetryCeiling; i++ {
		res, err := q.Drain(context.Background(), fail)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Remaining)
		ops := q.Ops()
		require.Len(t, ops, 1)
		assert.Equal(t, i, ops[0].RetryCount)
	}

	// The drain that reaches the ceiling drops it.
	res, err := q.Drain(context.Background(), fail)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, q.Len())
}

func TestDrainDropsDeniedImmediately(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"id": "n1"})))

	res, err := q.Drain(context.Background(), func(context.Context, models.PendingOperation) error {
		return apperr.ErrDenied
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, q.Len(), "a denied write never retries")
}

func TestDrainKeepsOpSupersededMidFlight(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))

	// A concurrent write replaces the payload while the drain is
	// replaying the old one; the success acknowledges only the old
	// payload, so the new one must stay queued.
	res, err := q.Drain(context.Background(), func(_ context.Context, op models.PendingOperation) error {
		require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v2"})))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Replayed)
	ops := q.Ops()
	require.Len(t, ops, 1)
	assert.Contains(t, string(ops[0].Payload), "v2")
}

func TestDrainDeniedKeepsSupersededPayload(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))

	// The denial applies to the old payload; the write that superseded
	// it mid-flight has not been judged yet and must stay queued.
	res, err := q.Drain(context.Background(), func(_ context.Context, op models.PendingOperation) error {
		require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v2"})))
		return apperr.ErrDenied
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Dropped)
	ops := q.Ops()
	require.Len(t, ops, 1)
	assert.Contains(t, string(ops[0].Payload), "v2")
}

func TestDrainFailureDoesNotChargeSupersededPayload(t *testing.T) {
	q, _ := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v1"})))

	_, err := q.Drain(context.Background(), func(_ context.Context, op models.PendingOperation) error {
		require.NoError(t, q.Enqueue(models.OpUpdate, models.CollectionNotes, "n1", payload(t, map[string]string{"title": "v2"})))
		return apperr.ErrUnavailable
	})
	require.NoError(t, err)

	ops := q.Ops()
	require.Len(t, ops, 1)
	assert.Equal(t, 0, ops[0].RetryCount, "old payload's failure charged the fresh payload")
	assert.Contains(t, string(ops[0].Payload), "v2")
}

func TestDrainPersistsProgress(t *testing.T) {
	q, store := testQueue(t)
	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "ok", payload(t, map[string]string{"id": "ok"})))
	require.NoError(t, q.Enqueue(models.OpCreate, models.CollectionNotes, "fails", payload(t, map[string]string{"id": "fails"})))

	_, err := q.Drain(context.Background(), func(_ context.Context, op models.PendingOperation) error {
		if op.EntityID == "fails" {
			return errors.New("remote hiccup")
		}
		return nil
	})
	require.NoError(t, err)

	// The persisted log reflects the partial drain, so a restart does
	// not resurrect the acknowledged op.
	persisted, err := store.PendingOps()
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "fails", persisted[0].EntityID)
	assert.Equal(t, 1, persisted[0].RetryCount)
}
