// Package models defines the domain types shared by the Laguz engine.
package models

// Note is one Markdown file tracked by the store. Path is the authoritative
// identity; Name is a rename-safe secondary key unique within the store.
// Timestamps are Unix seconds.
type Note struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Folder     string `json:"folder,omitempty"`
	OrderIndex int    `json:"order_index"`
	Icon       string `json:"icon,omitempty"`
	IconColor  string `json:"icon_color,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Tag is a case-insensitive label with a live usage counter.
type Tag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	UsageCount int    `json:"usage_count"`
}

// Folder is a vault directory with display metadata.
type Folder struct {
	ID         int64  `json:"id"`
	Path       string `json:"path"`
	Icon       string `json:"icon,omitempty"`
	IconColor  string `json:"icon_color,omitempty"`
	Color      string `json:"color,omitempty"`
	OrderIndex int    `json:"order_index"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

// SearchResult is one full-text or tag search hit.
type SearchResult struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Folder  string  `json:"folder,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Rank    float64 `json:"rank"`
}

// RecordProperty is one (key, rendered value) pair of a grouped record.
type RecordProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GroupedRecord is a read-model row synthesized from the inline properties
// of one note that share a group. Ungrouped properties surface with a
// negative GroupID derived from the property row id.
type GroupedRecord struct {
	NoteID     int64            `json:"note_id"`
	NoteName   string           `json:"note_name"`
	GroupID    int64            `json:"group_id"`
	Properties []RecordProperty `json:"properties"`
}

// Embedding is one chunk of a note's embedded content.
type Embedding struct {
	ID         int64  `json:"id"`
	NotePath   string `json:"note_path"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkText  string `json:"chunk_text"`
	Vector     []byte `json:"-"`
	TokenCount int    `json:"token_count"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}
