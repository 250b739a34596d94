package api

import (
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Name    string `json:"name" example:"reading-list" validate:"required"`
	Folder  string `json:"folder" example:"topics"`
	Content string `json:"content" example:"# Reading list\n[libro::Dune]" validate:"required"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// AppendNoteRequest is the request body for appending to a note.
type AppendNoteRequest struct {
	Text string `json:"text" example:"- new item" validate:"required"`
}

// RenameNoteRequest is the request body for renaming a note.
type RenameNoteRequest struct {
	NewName string `json:"new_name" example:"reading-list-2026" validate:"required"`
}

// MoveNoteRequest is the request body for moving a note to another folder.
type MoveNoteRequest struct {
	Folder string `json:"folder" example:"archive/2026" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// TagListResponse wraps the tag inventory.
type TagListResponse struct {
	Tags []models.Tag `json:"tags" validate:"required"`
}

// RecordCellRequest identifies one cell of a grouped record and its new value.
type RecordCellRequest struct {
	NoteName string                  `json:"note_name" example:"games" validate:"required"`
	Ref      []models.RecordProperty `json:"ref" validate:"required"`
	Key      string                  `json:"key" example:"horas" validate:"required"`
	Value    string                  `json:"value" example:"14" validate:"required"`
}

// ExpandRecordRequest turns a standalone property into a two-property group.
type ExpandRecordRequest struct {
	NoteName string `json:"note_name" example:"games" validate:"required"`
	Key      string `json:"key" example:"precio" validate:"required"`
	Value    string `json:"value" example:"10" validate:"required"`
	NewKey   string `json:"new_key" example:"moneda" validate:"required"`
	NewValue string `json:"new_value" example:"EUR" validate:"required"`
}

// RecordWriteResponse reports how many bracket groups were rewritten.
type RecordWriteResponse struct {
	Rewritten int `json:"rewritten" example:"2" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/image.png" validate:"required"`
}
