package models

import "time"

// ChatMessage is a single message within a chat thread.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	FromUser  bool      `json:"from_user"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatThread is an ordered conversation owned by a single user.
type ChatThread struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// EntityID returns the stable identifier of the thread.
func (t ChatThread) EntityID() string { return t.ID }

// ModifiedAt returns the last-write timestamp of the thread.
func (t ChatThread) ModifiedAt() time.Time { return t.UpdatedAt }
