// Package query evaluates filters, sorting, and aggregations over indexed
// notes and grouped records.
package query

import (
	"fmt"
	"strings"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/property"
)

// Store is the slice of the index the engine reads from.
type Store interface {
	ListNotes(folder string) ([]models.Note, error)
	NoteTags(noteID int64) ([]string, error)
	NoteProperties(noteID int64) ([]index.StoredProperty, error)
	AllGroupedRecords(folder string) ([]models.GroupedRecord, error)
	RecordsByProperty(key, folder string) ([]models.GroupedRecord, error)
	DiscoverRelatedColumns(key string) ([]string, error)
}

// Engine runs note queries against a Store.
type Engine struct {
	store Store
}

// NewEngine returns an Engine reading from store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// NoteWithProperties is one note materialized for filtering and sorting:
// the row itself, its tags, and its inline properties keyed by name.
type NoteWithProperties struct {
	Note       models.Note
	Tags       []string
	Properties map[string]property.Value
}

// Get resolves a property by key. Built-in keys come from the note row;
// everything else reads the inline property map. Missing keys are Null.
func (n *NoteWithProperties) Get(key string) property.Value {
	switch strings.ToLower(key) {
	case "title", "name":
		return property.Text(n.Note.Name)
	case "path":
		return property.Text(n.Note.Path)
	case "folder":
		return property.Text(n.Note.Folder)
	case "created", "created_at":
		return property.Number(float64(n.Note.CreatedAt))
	case "modified", "updated_at":
		return property.Number(float64(n.Note.UpdatedAt))
	case "tags":
		return property.Tags(n.Tags)
	}
	if v, ok := n.Properties[key]; ok {
		return v
	}
	return property.Null()
}

// Notes materializes every visible note under folder, applies the filter
// group, and sorts the survivors.
func (e *Engine) Notes(folder string, filters FilterGroup, sort *SortConfig) ([]NoteWithProperties, error) {
	rows, err := e.store.ListNotes(folder)
	if err != nil {
		return nil, fmt.Errorf("query: list notes: %w", err)
	}

	out := make([]NoteWithProperties, 0, len(rows))
	for _, row := range rows {
		n, err := e.materialize(row)
		if err != nil {
			return nil, err
		}
		if filters.Matches(n) {
			out = append(out, *n)
		}
	}

	if sort != nil {
		sortNotes(out, *sort)
	}
	return out, nil
}

// GroupedRecords returns the coalesced record view, folder-filtered.
func (e *Engine) GroupedRecords(folder string) ([]models.GroupedRecord, error) {
	return e.store.AllGroupedRecords(folder)
}

// PropertyRecords returns records containing the given key plus the related
// column keys discovered alongside it.
func (e *Engine) PropertyRecords(key, folder string) ([]models.GroupedRecord, []string, error) {
	if key == "" {
		return nil, nil, fmt.Errorf("query: property records need a filter property")
	}
	recs, err := e.store.RecordsByProperty(key, folder)
	if err != nil {
		return nil, nil, err
	}
	cols, err := e.store.DiscoverRelatedColumns(key)
	if err != nil {
		return nil, nil, err
	}
	return recs, cols, nil
}

func (e *Engine) materialize(row models.Note) (*NoteWithProperties, error) {
	tags, err := e.store.NoteTags(row.ID)
	if err != nil {
		return nil, fmt.Errorf("query: note tags: %w", err)
	}
	props, err := e.store.NoteProperties(row.ID)
	if err != nil {
		return nil, fmt.Errorf("query: note properties: %w", err)
	}

	merged := make(map[string]property.Value, len(props))
	for _, p := range props {
		v := p.Value()
		prev, seen := merged[p.Key]
		if !seen {
			merged[p.Key] = v
			continue
		}
		merged[p.Key] = coalesce(prev, v)
	}

	return &NoteWithProperties{Note: row, Tags: tags, Properties: merged}, nil
}

// coalesce folds a repeated key into the existing value: an existing list
// absorbs the newcomer, two scalars promote to a list.
func coalesce(prev, next property.Value) property.Value {
	switch prev.Kind {
	case property.KindList, property.KindTags, property.KindLinks:
		items := append(append([]string(nil), prev.Items...), itemsOf(next)...)
		return property.Value{Kind: prev.Kind, Items: items}
	default:
		items := append(itemsOf(prev), itemsOf(next)...)
		return property.List(items)
	}
}

func itemsOf(v property.Value) []string {
	switch v.Kind {
	case property.KindList, property.KindTags, property.KindLinks:
		return append([]string(nil), v.Items...)
	case property.KindNull:
		return nil
	default:
		return []string{v.String()}
	}
}
