// Package models defines the domain types for Laguz.
package models

import "time"

// Collection identifies one of the synchronized entity collections.
type Collection string

const (
	CollectionNotes   Collection = "notes"
	CollectionThreads Collection = "chatThreads"
	CollectionLabels  Collection = "labels"
)

// Note is a user note. The ID is generated client-side and is immutable
// once created. UpdatedAt is monotonically non-decreasing across
// successive writes of the same ID.
type Note struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Color      string    `json:"color,omitempty"`
	Pinned     bool      `json:"pinned"`
	Archived   bool      `json:"archived"`
	LabelIDs   []string  `json:"label_ids,omitempty"`
	MediaRefs  []string  `json:"media_refs,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EntityID returns the stable identifier of the note.
func (n Note) EntityID() string { return n.ID }

// ModifiedAt returns the last-write timestamp of the note.
func (n Note) ModifiedAt() time.Time { return n.UpdatedAt }
