package models

import (
	"encoding/json"
	"time"
)

// OpKind is the kind of a pending remote write.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// PendingOperation is a durable record of a remote write that failed or
// was skipped and must be replayed once connectivity returns.
type PendingOperation struct {
	ID         string          `json:"id"`
	Kind       OpKind          `json:"kind"`
	Collection Collection      `json:"collection"`
	EntityID   string          `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
}

// SyncStatus is a read-only snapshot of the engine state. It is rebuilt
// at startup from the local store and queue length, never persisted
// verbatim.
type SyncStatus struct {
	LastSyncTime       *time.Time `json:"last_sync_time,omitempty"`
	IsOnline           bool       `json:"is_online"`
	IsSyncing          bool       `json:"is_syncing"`
	PendingChangeCount int        `json:"pending_change_count"`
}

// User is the identity resolved by the authentication collaborator.
// Guests have no stable remote identity; all their writes stay local.
type User struct {
	ID      string `json:"id"`
	IsGuest bool   `json:"is_guest"`
}

// GuestID is the local-store scope used when no authenticated user exists.
const GuestID = "guest"
