package models

import "time"

// Label is a user-defined tag applied to notes. Name is unique per owner.
type Label struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the stable identifier of the label.
func (l Label) EntityID() string { return l.ID }

// ModifiedAt returns the last-write timestamp of the label.
func (l Label) ModifiedAt() time.Time { return l.UpdatedAt }
