package index

import (
	"log/slog"

	"github.com/starford/laguz/internal/models"
)

// NoteIndex is the store surface consumed by the service and façade
// layers. Depend on this interface rather than *DB to allow mocking.
type NoteIndex interface {
	IndexNote(name, path, content, folder string) error
	DeleteNoteByName(name string) error
	DeleteNoteByPath(path string) error
	RenameNote(oldName, newName, newPath string) error
	UpdateNotesFolder(old, new, root string) error
	CleanupOrphanedNotes(pathsOnDisk map[string]struct{}, logger *slog.Logger) (int, error)

	GetNoteByName(name string) (*models.Note, error)
	GetNoteByPath(path string) (*models.Note, error)
	ListNotes(folder string) ([]models.Note, error)
	RecentNotes(limit int) ([]models.Note, error)
	AllChecksums() (map[string]string, error)

	SearchNotes(query string) ([]models.SearchResult, error)

	ListTags() ([]models.Tag, error)
	NotesWithTag(tag string, limit int) ([]models.Note, error)
	NoteTags(noteID int64) ([]string, error)
	SetTagColor(name, color string) error

	NoteProperties(noteID int64) ([]StoredProperty, error)
	PropertiesByKey(key string) ([]StoredProperty, error)
	SyncInlineProperties(noteID int64, content string) error
	AllGroupedRecords(folder string) ([]models.GroupedRecord, error)
	RecordsByProperty(key, folder string) ([]models.GroupedRecord, error)
	DiscoverRelatedColumns(key string) ([]string, error)
	IdenticalGroups(noteID int64, ref []models.RecordProperty) ([]PropertyGroup, error)

	ListBases() ([]BaseRow, error)
	GetBase(id int64) (*BaseRow, error)
	GetBaseByName(name string) (*BaseRow, error)
	CreateBase(b BaseRow) (int64, error)
	UpdateBase(b BaseRow) error
	DeleteBase(id int64) error

	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
