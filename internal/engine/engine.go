// Package engine implements the offline-first synchronization engine.
//
// The engine is the only component that mutates the local store and
// drives the remote client during a sync cycle. All sync triggers — the
// periodic timer, connectivity edges, foreground edges, and explicit
// refresh — funnel through one unbuffered request channel, so at most
// one cycle is ever in flight and a request arriving mid-cycle is
// rejected rather than queued.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/laguz/internal/localstore"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/pending"
	"github.com/starford/laguz/internal/remote"
)

// Notifier publishes engine events to interested clients. *sse.Broker
// satisfies it.
type Notifier interface {
	PublishEntityEvent(kind, id string)
}

type nopNotifier struct{}

func (nopNotifier) PublishEntityEvent(string, string) {}

// Engine owns the sync state machine and the immediate write path.
type Engine struct {
	store  *localstore.Store
	remote remote.Client
	queue  *pending.Queue
	notify Notifier
	logger *slog.Logger

	interval  time.Duration
	requestCh chan string

	mu       sync.Mutex
	online   bool
	syncing  bool
	lastSync *time.Time
	user     *models.User // last successfully resolved identity
}

// New builds an engine. The notifier may be nil. Status is rebuilt from
// the store's lastSyncTime and the queue length, never from persisted
// status. An interval <= 0 disables the periodic trigger.
func New(store *localstore.Store, client remote.Client, queue *pending.Queue, notify Notifier, logger *slog.Logger, interval time.Duration) (*Engine, error) {
	last, err := store.LastSyncTime()
	if err != nil {
		return nil, err
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Engine{
		store:     store,
		remote:    client,
		queue:     queue,
		notify:    notify,
		logger:    logger,
		interval:  interval,
		requestCh: make(chan string),
		lastSync:  last,
	}, nil
}

// Run drives the engine loop until ctx is cancelled. Sync requests are
// only accepted while the loop is blocked here between cycles; a request
// during a running cycle fails its non-blocking send and is dropped.
func (e *Engine) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if e.interval > 0 {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	e.logger.Info("engine: started", slog.Duration("interval", e.interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine: stopped")
			return nil
		case reason := <-e.requestCh:
			e.runCycle(ctx, reason)
		case <-tick:
			e.runCycle(ctx, "periodic")
		}
	}
}

// RequestSync asks for a sync cycle. It returns false — without waiting —
// when the engine is offline, not running, or already syncing. Callers
// must not assume a sync ran.
func (e *Engine) RequestSync(reason string) bool {
	if !e.Online() {
		return false
	}
	select {
	case e.requestCh <- reason:
		return true
	default:
		return false
	}
}

// SetOnline records the reachability level pushed by the connectivity
// monitor. It never triggers a sync; edges are the monitor's business.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	e.online = online
	e.mu.Unlock()
}

// Online reports the last pushed reachability level.
func (e *Engine) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// Status returns a point-in-time snapshot of the engine state.
func (e *Engine) Status() models.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.SyncStatus{
		LastSyncTime:       e.lastSync,
		IsOnline:           e.online,
		IsSyncing:          e.syncing,
		PendingChangeCount: e.queue.Len(),
	}
}

func (e *Engine) setSyncing(v bool) {
	e.mu.Lock()
	e.syncing = v
	e.mu.Unlock()
}

func (e *Engine) setLastSync(t time.Time) {
	e.mu.Lock()
	e.lastSync = &t
	e.mu.Unlock()
}

// currentUser resolves the authenticated identity. Offline, the last
// resolved identity is reused so offline edits land in the right
// keyspace; with nothing resolved yet, or when signed out, the guest
// scope is used and everything stays local.
func (e *Engine) currentUser(ctx context.Context) models.User {
	guest := models.User{ID: models.GuestID, IsGuest: true}

	if !e.Online() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.user != nil {
			return *e.user
		}
		return guest
	}

	u, err := e.remote.CurrentUser(ctx)
	if err != nil {
		e.logger.Debug("engine: resolve user failed", slog.String("error", err.Error()))
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.user != nil {
			return *e.user
		}
		return guest
	}
	if u == nil || u.IsGuest {
		return guest
	}

	e.mu.Lock()
	e.user = u
	e.mu.Unlock()
	return *u
}
