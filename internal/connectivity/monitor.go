// Package connectivity tracks network reachability and app
// foreground/background transitions, requesting a sync on each
// offline→online or background→foreground edge.
package connectivity

import (
	"log/slog"
	"sync"
)

// Engine is the subset of the sync engine the monitor drives. A rejected
// sync request (engine already syncing) is dropped, never queued.
type Engine interface {
	SetOnline(online bool)
	RequestSync(reason string) bool
}

// Monitor receives push-based platform signals and forwards edges to the
// engine. It keeps no timer of its own; periodic syncing belongs to the
// engine.
type Monitor struct {
	mu         sync.Mutex
	online     bool
	foreground bool

	engine Engine
	logger *slog.Logger
}

// NewMonitor creates a monitor. The initial state is offline and
// foregrounded; the first OnConnectivityChange(true) is an edge.
func NewMonitor(engine Engine, logger *slog.Logger) *Monitor {
	return &Monitor{foreground: true, engine: engine, logger: logger}
}

// Online reports the last observed reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnConnectivityChange records the new reachability and requests exactly
// one sync on an offline→online transition. Repeated same-state signals
// are no-ops.
func (m *Monitor) OnConnectivityChange(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	m.engine.SetOnline(online)
	if online && !wasOnline {
		accepted := m.engine.RequestSync("became-online")
		m.logger.Debug("connectivity: online edge",
			slog.Bool("sync_accepted", accepted))
	}
}

// OnAppActive records the foreground transition and requests exactly one
// sync when the app was previously backgrounded.
func (m *Monitor) OnAppActive() {
	m.mu.Lock()
	wasForeground := m.foreground
	m.foreground = true
	m.mu.Unlock()

	if !wasForeground {
		accepted := m.engine.RequestSync("became-foreground")
		m.logger.Debug("connectivity: foreground edge",
			slog.Bool("sync_accepted", accepted))
	}
}

// OnAppBackground records that the app left the foreground.
func (m *Monitor) OnAppBackground() {
	m.mu.Lock()
	m.foreground = false
	m.mu.Unlock()
}
