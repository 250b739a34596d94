// Package noteservice is the operation façade over storage, index, and
// bases. HTTP and MCP surfaces both call through it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/base"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Folder    string   `json:"folder"`
	Content   string   `json:"content"`
	Checksum  string   `json:"checksum"`
	Tags      []string `json:"tags"`
	UpdatedAt int64    `json:"updated_at"`
}

// Service coordinates storage, index, and base operations.
type Service struct {
	store storage.Provider
	db    *index.DB
	bases *base.Store
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB) *Service {
	return &Service{store: store, db: db, bases: base.NewStore(db)}
}

// CreateNote writes a new note file and indexes it.
func (s *Service) CreateNote(_ context.Context, name, folder, content string) (*NoteDetail, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	rel := relPath(folder, name)
	if _, err := s.store.Read(rel); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(rel, []byte(content)); err != nil {
		return nil, err
	}
	abs := filepath.Join(s.store.Root(), rel)
	if err := s.db.IndexNote(name, abs, content, folder); err != nil {
		return nil, err
	}
	return s.buildDetail(name)
}

// ReadNote returns a note with its current on-disk content.
func (s *Service) ReadNote(_ context.Context, name string) (*NoteDetail, error) {
	return s.buildDetail(name)
}

// UpdateNote replaces a note's content. A non-empty ifMatch checksum makes
// the write conditional on the stored content being unchanged.
func (s *Service) UpdateNote(_ context.Context, name, content, ifMatch string) (*NoteDetail, error) {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return nil, err
	}
	rel, err := s.relOf(n)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" {
		existing, err := s.store.Read(rel)
		if err != nil {
			return nil, err
		}
		if ifMatch != checksum.Sum(existing) {
			return nil, apperr.ErrConflict
		}
	}
	if err := s.store.Write(rel, []byte(content)); err != nil {
		return nil, err
	}
	if err := s.db.IndexNote(n.Name, n.Path, content, n.Folder); err != nil {
		return nil, err
	}
	return s.buildDetail(name)
}

// AppendToNote adds text at the end of a note, preserving a separating
// newline.
func (s *Service) AppendToNote(ctx context.Context, name, text string) (*NoteDetail, error) {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return nil, err
	}
	rel, err := s.relOf(n)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += text
	return s.UpdateNote(ctx, name, content, "")
}

// RenameNote changes a note's name, moving the file and rewriting the
// index row in lockstep.
func (s *Service) RenameNote(_ context.Context, oldName, newName string) (*NoteDetail, error) {
	if err := validName(newName); err != nil {
		return nil, err
	}
	n, err := s.db.GetNoteByName(oldName)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.GetNoteByName(newName); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	oldRel, err := s.relOf(n)
	if err != nil {
		return nil, err
	}
	newRel := relPath(n.Folder, newName)
	if err := s.store.Move(oldRel, newRel); err != nil {
		return nil, err
	}
	newAbs := filepath.Join(s.store.Root(), newRel)
	if err := s.db.RenameNote(oldName, newName, newAbs); err != nil {
		return nil, err
	}
	return s.buildDetail(newName)
}

// DeleteNote soft-deletes: the file moves into .trash/ and stays indexed
// there, hidden from queries.
func (s *Service) DeleteNote(_ context.Context, name string) error {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return err
	}
	rel, err := s.relOf(n)
	if err != nil {
		return err
	}
	data, err := s.store.Read(rel)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	trashRel, err := s.store.Trash(rel)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNoteByPath(n.Path); err != nil {
		return err
	}
	trashAbs := filepath.Join(s.store.Root(), trashRel)
	return s.db.IndexNote(n.Name, trashAbs, string(data), filepath.Dir(trashRel))
}

// PermanentlyDeleteNote removes the file and every index row.
func (s *Service) PermanentlyDeleteNote(_ context.Context, name string) error {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return err
	}
	rel, err := s.relOf(n)
	if err != nil {
		return err
	}
	if err := s.store.Delete(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.db.DeleteNoteByName(name)
}

// MoveNote relocates a note into another folder.
func (s *Service) MoveNote(_ context.Context, name, newFolder string) (*NoteDetail, error) {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return nil, err
	}
	if n.Folder == newFolder {
		return s.buildDetail(name)
	}
	oldRel, err := s.relOf(n)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(oldRel)
	if err != nil {
		return nil, err
	}
	newRel := relPath(newFolder, name)
	if err := s.store.Move(oldRel, newRel); err != nil {
		return nil, err
	}
	if err := s.db.DeleteNoteByPath(n.Path); err != nil {
		return nil, err
	}
	newAbs := filepath.Join(s.store.Root(), newRel)
	if err := s.db.IndexNote(name, newAbs, string(data), newFolder); err != nil {
		return nil, err
	}
	return s.buildDetail(name)
}

// ListNotes returns visible notes, optionally below one folder.
func (s *Service) ListNotes(_ context.Context, folder string) ([]models.Note, error) {
	return s.db.ListNotes(folder)
}

// SearchNotes runs the tag / full-text front door.
func (s *Service) SearchNotes(_ context.Context, query string) ([]models.SearchResult, error) {
	return s.db.SearchNotes(query)
}

// GetAllTags returns every tag with its usage count.
func (s *Service) GetAllTags(_ context.Context) ([]models.Tag, error) {
	return s.db.ListTags()
}

// GetNotesWithTag returns notes carrying the tag, case-insensitively.
func (s *Service) GetNotesWithTag(_ context.Context, tag string) ([]models.SearchResult, error) {
	return s.db.SearchNotes("#" + strings.TrimPrefix(tag, "#"))
}

// GetRecentNotes returns the most recently updated notes.
func (s *Service) GetRecentNotes(_ context.Context, limit int) ([]models.Note, error) {
	return s.db.RecentNotes(limit)
}

// GetNoteProperties returns the stored inline properties of one note.
func (s *Service) GetNoteProperties(_ context.Context, name string) ([]index.StoredProperty, error) {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return nil, err
	}
	return s.db.NoteProperties(n.ID)
}

// Bases exposes the base definition store.
func (s *Service) Bases() *base.Store {
	return s.bases
}

// ListBases returns every base definition.
func (s *Service) ListBases(_ context.Context) ([]*base.Base, error) {
	return s.bases.List()
}

// CreateBase validates and persists a new base.
func (s *Service) CreateBase(_ context.Context, b *base.Base) (int64, error) {
	return s.bases.Create(b)
}

// UpdateBase replaces a base definition.
func (s *Service) UpdateBase(_ context.Context, b *base.Base) error {
	return s.bases.Update(b)
}

// DeleteBase removes a base definition.
func (s *Service) DeleteBase(_ context.Context, id int64) error {
	return s.bases.Delete(id)
}

func (s *Service) buildDetail(name string) (*NoteDetail, error) {
	n, err := s.db.GetNoteByName(name)
	if err != nil {
		return nil, err
	}
	rel, err := s.relOf(n)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NoteNotFound(name)
		}
		return nil, err
	}
	tags, err := s.db.NoteTags(n.ID)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Name:      n.Name,
		Path:      n.Path,
		Folder:    n.Folder,
		Content:   string(data),
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(tags),
		UpdatedAt: n.UpdatedAt,
	}, nil
}

func (s *Service) relOf(n *models.Note) (string, error) {
	rel, err := filepath.Rel(s.store.Root(), n.Path)
	if err != nil {
		return "", fmt.Errorf("noteservice: note path outside vault: %w", err)
	}
	return rel, nil
}

func relPath(folder, name string) string {
	return filepath.Join(folder, name+".md")
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid note name %q", apperr.ErrInvalidInput, name)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
