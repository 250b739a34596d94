package base

import (
	"fmt"

	"github.com/starford/laguz/internal/index"
)

// Store persists Base definitions through the index.
type Store struct {
	db *index.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *index.DB) *Store {
	return &Store{db: db}
}

// Create validates and persists a new base, returning its id.
func (s *Store) Create(b *Base) (int64, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	row, err := toRow(b)
	if err != nil {
		return 0, err
	}
	id, err := s.db.CreateBase(row)
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

// Update validates and replaces an existing base definition.
func (s *Store) Update(b *Base) error {
	if err := b.Validate(); err != nil {
		return err
	}
	row, err := toRow(b)
	if err != nil {
		return err
	}
	row.ID = b.ID
	return s.db.UpdateBase(row)
}

// Delete removes a base.
func (s *Store) Delete(id int64) error {
	return s.db.DeleteBase(id)
}

// Get loads one base by id.
func (s *Store) Get(id int64) (*Base, error) {
	row, err := s.db.GetBase(id)
	if err != nil {
		return nil, err
	}
	return fromRow(row)
}

// GetByName loads one base by its unique name.
func (s *Store) GetByName(name string) (*Base, error) {
	row, err := s.db.GetBaseByName(name)
	if err != nil {
		return nil, err
	}
	return fromRow(row)
}

// List loads every base, ordered by name.
func (s *Store) List() ([]*Base, error) {
	rows, err := s.db.ListBases()
	if err != nil {
		return nil, err
	}
	out := make([]*Base, 0, len(rows))
	for i := range rows {
		b, err := fromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("base %q: %w", rows[i].Name, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func toRow(b *Base) (index.BaseRow, error) {
	blob, err := b.EncodeConfig()
	if err != nil {
		return index.BaseRow{}, err
	}
	return index.BaseRow{
		Name:         b.Name,
		Description:  b.Description,
		SourceFolder: b.SourceFolder,
		ConfigYAML:   blob,
		ActiveView:   b.ActiveView,
	}, nil
}

func fromRow(row *index.BaseRow) (*Base, error) {
	b, err := DecodeConfig(row.ConfigYAML)
	if err != nil {
		return nil, err
	}
	b.ID = row.ID
	b.Name = row.Name
	b.Description = row.Description
	b.SourceFolder = row.SourceFolder
	b.ActiveView = row.ActiveView
	return b, nil
}
