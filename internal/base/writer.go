package base

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/storage"
)

// Writer routes record-view edits back into the owning note files. Every
// edit rewrites exactly the bracket spans involved, then re-indexes the
// note so stored spans stay accurate.
type Writer struct {
	db    *index.DB
	store storage.Provider
}

// NewWriter returns a Writer over db and store.
func NewWriter(db *index.DB, store storage.Provider) *Writer {
	return &Writer{db: db, store: store}
}

// UpdateRecordCell sets property key to newValue in the group matching ref.
// When several groups in the note are byte-identical, the edit propagates
// to all of them. Returns the number of groups rewritten.
func (w *Writer) UpdateRecordCell(note *models.Note, ref []models.RecordProperty, key, newValue string) (int, error) {
	return w.rewriteGroups(note, ref, func(pairs []propPair) []propPair {
		for i := range pairs {
			if pairs[i].key == key {
				pairs[i].val = newValue
			}
		}
		return pairs
	})
}

// AddPropertyToGroup appends key::value to the group matching ref,
// propagating to byte-identical groups.
func (w *Writer) AddPropertyToGroup(note *models.Note, ref []models.RecordProperty, key, value string) (int, error) {
	return w.rewriteGroups(note, ref, func(pairs []propPair) []propPair {
		for i := range pairs {
			if pairs[i].key == key {
				pairs[i].val = value
				return pairs
			}
		}
		return append(pairs, propPair{key: key, val: value})
	})
}

// ExpandIndividualToGroup turns a standalone [key::value] bracket into a
// group by adding a second pair.
func (w *Writer) ExpandIndividualToGroup(note *models.Note, existingKey, existingValue, newKey, newValue string) (int, error) {
	ref := []models.RecordProperty{{Key: existingKey, Value: existingValue}}
	return w.AddPropertyToGroup(note, ref, newKey, newValue)
}

type propPair struct {
	key string
	val string
}

type spanEdit struct {
	start int
	end   int
	text  string
}

// rewriteGroups locates every group identical to ref, applies mutate to its
// pair list, and splices the rebuilt brackets back into the file in
// descending span order so earlier offsets stay valid.
func (w *Writer) rewriteGroups(note *models.Note, ref []models.RecordProperty, mutate func([]propPair) []propPair) (int, error) {
	groups, err := w.db.IdenticalGroups(note.ID, ref)
	if err != nil {
		return 0, err
	}
	if len(groups) == 0 {
		return 0, fmt.Errorf("base: no group matches the edited record in note %q", note.Name)
	}

	rel, err := filepath.Rel(w.store.Root(), note.Path)
	if err != nil {
		return 0, fmt.Errorf("base: note path outside vault: %w", err)
	}
	data, err := w.store.Read(rel)
	if err != nil {
		return 0, err
	}
	content := string(data)

	edits := make([]spanEdit, 0, len(groups))
	for _, g := range groups {
		start, end := g.Properties[0].CharStart, g.Properties[0].CharEnd
		if start < 0 || end > len(content) || start >= end {
			return 0, fmt.Errorf("base: stale property span %d:%d in note %q", start, end, note.Name)
		}
		pairs := make([]propPair, len(g.Properties))
		for i, p := range g.Properties {
			pairs[i] = propPair{key: p.Key, val: p.Raw}
		}
		edits = append(edits, spanEdit{start: start, end: end, text: renderBracket(mutate(pairs))})
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		content = content[:e.start] + e.text + content[e.end:]
	}

	if err := w.store.Write(rel, []byte(content)); err != nil {
		return 0, err
	}
	if err := w.db.IndexNote(note.Name, note.Path, content, note.Folder); err != nil {
		return 0, err
	}
	return len(edits), nil
}

func renderBracket(pairs []propPair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "::" + p.val
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
