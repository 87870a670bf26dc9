package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// Key space for synchronized state. Collections are scoped per user;
// the pending queue and last-sync marker are process-global.
const (
	keyPendingOps   = "pendingOperations"
	keyLastSyncTime = "lastSyncTime"
)

func collectionKey(c models.Collection, userID string) string {
	return fmt.Sprintf("%s_%s", c, userID)
}

// Store is the typed layer above the key-value Provider. A single mutex
// serializes every read-modify-write of a (user, collection) key so a
// single-entity change never races a whole-collection replace.
type Store struct {
	mu sync.Mutex
	kv Provider
}

// NewStore creates a Store over the given Provider.
func NewStore(kv Provider) *Store {
	return &Store{kv: kv}
}

// Close closes the underlying provider.
func (s *Store) Close() error {
	return s.kv.Close()
}

func loadJSON[T any](kv Provider, key string) ([]T, error) {
	data, err := kv.Get(key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("localstore: decode %s: %w", key, err)
	}
	return out, nil
}

func saveJSON[T any](kv Provider, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("localstore: encode %s: %w", key, err)
	}
	return kv.Put(key, data)
}

// upsert replaces the entity with the same id, or appends when absent.
func upsert[T any](items []T, id string, idOf func(T) string, item T) []T {
	for i := range items {
		if idOf(items[i]) == id {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func remove[T any](items []T, id string, idOf func(T) string) []T {
	out := items[:0]
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out
}

// Notes returns the stored note collection for userID.
func (s *Store) Notes(userID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON[models.Note](s.kv, collectionKey(models.CollectionNotes, userID))
}

// SetNotes replaces the whole note collection for userID.
func (s *Store) SetNotes(userID string, notes []models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveJSON(s.kv, collectionKey(models.CollectionNotes, userID), notes)
}

// UpsertNote applies a single-note change under the store lock.
func (s *Store) UpsertNote(userID string, n models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionNotes, userID)
	notes, err := loadJSON[models.Note](s.kv, key)
	if err != nil {
		return err
	}
	notes = upsert(notes, n.ID, func(x models.Note) string { return x.ID }, n)
	return saveJSON(s.kv, key, notes)
}

// DeleteNote removes a single note under the store lock.
func (s *Store) DeleteNote(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionNotes, userID)
	notes, err := loadJSON[models.Note](s.kv, key)
	if err != nil {
		return err
	}
	return saveJSON(s.kv, key, remove(notes, id, func(x models.Note) string { return x.ID }))
}

// Threads returns the stored chat threads for userID.
func (s *Store) Threads(userID string) ([]models.ChatThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON[models.ChatThread](s.kv, collectionKey(models.CollectionThreads, userID))
}

// SetThreads replaces the whole thread collection for userID.
func (s *Store) SetThreads(userID string, threads []models.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveJSON(s.kv, collectionKey(models.CollectionThreads, userID), threads)
}

// UpsertThread applies a single-thread change under the store lock.
func (s *Store) UpsertThread(userID string, t models.ChatThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionThreads, userID)
	threads, err := loadJSON[models.ChatThread](s.kv, key)
	if err != nil {
		return err
	}
	threads = upsert(threads, t.ID, func(x models.ChatThread) string { return x.ID }, t)
	return saveJSON(s.kv, key, threads)
}

// DeleteThread removes a single thread under the store lock.
func (s *Store) DeleteThread(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionThreads, userID)
	threads, err := loadJSON[models.ChatThread](s.kv, key)
	if err != nil {
		return err
	}
	return saveJSON(s.kv, key, remove(threads, id, func(x models.ChatThread) string { return x.ID }))
}

// Labels returns the stored labels for userID.
func (s *Store) Labels(userID string) ([]models.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON[models.Label](s.kv, collectionKey(models.CollectionLabels, userID))
}

// SetLabels replaces the whole label collection for userID.
func (s *Store) SetLabels(userID string, labels []models.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveJSON(s.kv, collectionKey(models.CollectionLabels, userID), labels)
}

// UpsertLabel applies a single-label change under the store lock.
func (s *Store) UpsertLabel(userID string, l models.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionLabels, userID)
	labels, err := loadJSON[models.Label](s.kv, key)
	if err != nil {
		return err
	}
	labels = upsert(labels, l.ID, func(x models.Label) string { return x.ID }, l)
	return saveJSON(s.kv, key, labels)
}

// DeleteLabel removes a single label under the store lock.
func (s *Store) DeleteLabel(userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collectionKey(models.CollectionLabels, userID)
	labels, err := loadJSON[models.Label](s.kv, key)
	if err != nil {
		return err
	}
	return saveJSON(s.kv, key, remove(labels, id, func(x models.Label) string { return x.ID }))
}

// PendingOps returns the persisted pending-operation log in enqueue order.
func (s *Store) PendingOps() ([]models.PendingOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return loadJSON[models.PendingOperation](s.kv, keyPendingOps)
}

// SetPendingOps persists the full pending-operation log.
func (s *Store) SetPendingOps(ops []models.PendingOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveJSON(s.kv, keyPendingOps, ops)
}

// LastSyncTime returns the recorded completion time of the last sync
// cycle, or nil when no cycle has ever completed.
func (s *Store) LastSyncTime() (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.kv.Get(keyLastSyncTime)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, string(data))
	if err != nil {
		return nil, fmt.Errorf("localstore: parse lastSyncTime: %w", err)
	}
	return &ts, nil
}

// SetLastSyncTime records the completion time of a sync cycle.
func (s *Store) SetLastSyncTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Put(keyLastSyncTime, []byte(t.UTC().Format(time.RFC3339Nano)))
}
