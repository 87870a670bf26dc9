package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/laguz/internal/models"
)

// SaveNoteRequest is the request body for creating or updating a note.
// An empty ID means create.
type SaveNoteRequest struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Color      string   `json:"color"`
	Pinned     bool     `json:"pinned"`
	Archived   bool     `json:"archived"`
	LabelIDs   []string `json:"label_ids"`
	MediaRefs  []string `json:"media_refs"`
	Transcript string   `json:"transcript"`
}

// Validate validates the note payload.
func (r SaveNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 512)),
		validation.Field(&r.Content, validation.Required.When(r.Title == "")),
	)
}

func (r SaveNoteRequest) toModel() models.Note {
	return models.Note{
		ID:         r.ID,
		Title:      r.Title,
		Content:    r.Content,
		Color:      r.Color,
		Pinned:     r.Pinned,
		Archived:   r.Archived,
		LabelIDs:   r.LabelIDs,
		MediaRefs:  r.MediaRefs,
		Transcript: r.Transcript,
	}
}

// SaveThreadRequest is the request body for creating or updating a chat
// thread.
type SaveThreadRequest struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Messages []models.ChatMessage `json:"messages"`
}

// Validate validates the thread payload.
func (r SaveThreadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 512)),
	)
}

func (r SaveThreadRequest) toModel() models.ChatThread {
	return models.ChatThread{ID: r.ID, Title: r.Title, Messages: r.Messages}
}

// SaveLabelRequest is the request body for creating or updating a label.
type SaveLabelRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Validate validates the label payload.
func (r SaveLabelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}

func (r SaveLabelRequest) toModel() models.Label {
	return models.Label{ID: r.ID, Name: r.Name, Color: r.Color}
}

// ConnectivityRequest carries a platform reachability signal.
type ConnectivityRequest struct {
	Online bool `json:"online"`
}

// SyncResponse reports whether a requested sync was accepted.
type SyncResponse struct {
	Accepted bool `json:"accepted"`
}
