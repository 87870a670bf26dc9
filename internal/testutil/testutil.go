// Package testutil provides shared test helpers: temporary local stores
// and a scripted in-memory remote client.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/localstore"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/remote"
)

// TestStore creates a temporary SQLite-backed store that is cleaned up
// with the test.
func TestStore(t *testing.T) *localstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "laguz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	kv, err := localstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kv.Close() })
	return localstore.NewStore(kv)
}

// FakeRemote is an in-memory remote.Client. Tests script failures via
// FailWith and not-found updates via NotFoundIDs, and assert on CRUDCalls
// (CurrentUser is the auth collaborator and is not counted).
type FakeRemote struct {
	mu sync.Mutex

	User    *models.User
	UserErr error

	NotesByID   map[string]models.Note
	ThreadsByID map[string]models.ChatThread
	LabelsByID  map[string]models.Label

	// FailWith, when non-nil, makes every CRUD call fail with it.
	FailWith error
	// NotFoundIDs makes updates for these ids fail with apperr.ErrNotFound.
	NotFoundIDs map[string]bool
	// MintIDs makes creates assign a server-side id instead of keeping
	// the client-side one.
	MintIDs bool

	CRUDCalls int
	minted    int
}

// Verify *FakeRemote satisfies remote.Client at compile time.
var _ remote.Client = (*FakeRemote)(nil)

// NewFakeRemote creates a fake remote with an authenticated user.
func NewFakeRemote(user *models.User) *FakeRemote {
	return &FakeRemote{
		User:        user,
		NotesByID:   make(map[string]models.Note),
		ThreadsByID: make(map[string]models.ChatThread),
		LabelsByID:  make(map[string]models.Label),
		NotFoundIDs: make(map[string]bool),
	}
}

func (f *FakeRemote) CurrentUser(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	if f.User == nil {
		return nil, nil
	}
	u := *f.User
	return &u, nil
}

// SetFailure scripts all subsequent CRUD calls to fail with err.
func (f *FakeRemote) SetFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailWith = err
}

// Calls returns the CRUD call count.
func (f *FakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CRUDCalls
}

func (f *FakeRemote) begin() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CRUDCalls++
	return f.FailWith
}

func (f *FakeRemote) mintID(id string) string {
	if !f.MintIDs {
		return id
	}
	f.minted++
	return fmt.Sprintf("srv-%d", f.minted)
}

func (f *FakeRemote) ListNotes(ctx context.Context, ownerID string) ([]models.Note, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Note, 0, len(f.NotesByID))
	for _, n := range f.NotesByID {
		out = append(out, n)
	}
	return out, nil
}

func (f *FakeRemote) CreateNote(ctx context.Context, n models.Note) (models.Note, error) {
	if err := f.begin(); err != nil {
		return models.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.mintID(n.ID)
	f.NotesByID[n.ID] = n
	return n, nil
}

func (f *FakeRemote) UpdateNote(ctx context.Context, id string, n models.Note) (models.Note, error) {
	if err := f.begin(); err != nil {
		return models.Note{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NotFoundIDs[id] {
		return models.Note{}, apperr.ErrNotFound
	}
	if _, ok := f.NotesByID[id]; !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	f.NotesByID[id] = n
	return n, nil
}

func (f *FakeRemote) DeleteNote(ctx context.Context, id string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.NotesByID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.NotesByID, id)
	return nil
}

func (f *FakeRemote) ListThreads(ctx context.Context, ownerID string) ([]models.ChatThread, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatThread, 0, len(f.ThreadsByID))
	for _, t := range f.ThreadsByID {
		out = append(out, t)
	}
	return out, nil
}

func (f *FakeRemote) CreateThread(ctx context.Context, t models.ChatThread) (models.ChatThread, error) {
	if err := f.begin(); err != nil {
		return models.ChatThread{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.mintID(t.ID)
	f.ThreadsByID[t.ID] = t
	return t, nil
}

func (f *FakeRemote) UpdateThread(ctx context.Context, id string, t models.ChatThread) (models.ChatThread, error) {
	if err := f.begin(); err != nil {
		return models.ChatThread{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NotFoundIDs[id] {
		return models.ChatThread{}, apperr.ErrNotFound
	}
	if _, ok := f.ThreadsByID[id]; !ok {
		return models.ChatThread{}, apperr.ErrNotFound
	}
	f.ThreadsByID[id] = t
	return t, nil
}

func (f *FakeRemote) DeleteThread(ctx context.Context, id string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ThreadsByID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.ThreadsByID, id)
	return nil
}

func (f *FakeRemote) ListLabels(ctx context.Context, ownerID string) ([]models.Label, error) {
	if err := f.begin(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Label, 0, len(f.LabelsByID))
	for _, l := range f.LabelsByID {
		out = append(out, l)
	}
	return out, nil
}

func (f *FakeRemote) CreateLabel(ctx context.Context, l models.Label) (models.Label, error) {
	if err := f.begin(); err != nil {
		return models.Label{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.mintID(l.ID)
	f.LabelsByID[l.ID] = l
	return l, nil
}

func (f *FakeRemote) UpdateLabel(ctx context.Context, id string, l models.Label) (models.Label, error) {
	if err := f.begin(); err != nil {
		return models.Label{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NotFoundIDs[id] {
		return models.Label{}, apperr.ErrNotFound
	}
	if _, ok := f.LabelsByID[id]; !ok {
		return models.Label{}, apperr.ErrNotFound
	}
	f.LabelsByID[id] = l
	return l, nil
}

func (f *FakeRemote) DeleteLabel(ctx context.Context, id string) error {
	if err := f.begin(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.LabelsByID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(f.LabelsByID, id)
	return nil
}
