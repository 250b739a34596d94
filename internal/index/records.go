package index

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/starford/laguz/internal/models"
)

// genericKeys are status-like keys that never establish record identity
// during merging; only a shared non-generic key with an equal value pulls
// two records together.
var genericKeys = map[string]struct{}{
	"comprado":   {},
	"completado": {},
	"status":     {},
	"estado":     {},
	"leido":      {},
	"visto":      {},
	"done":       {},
	"pendiente":  {},
}

type record struct {
	noteID   int64
	noteName string
	groupID  int64
	props    map[string]string
}

// AllGroupedRecords synthesizes the deduplicated record view: one record
// per property group, one per ungrouped property (negative group id),
// merged per note on shared identifying keys, hidden folders excluded.
func (db *DB) AllGroupedRecords(folder string) ([]models.GroupedRecord, error) {
	return db.groupedRecords(folder)
}

// RecordsByProperty returns the records that carry the given property key.
func (db *DB) RecordsByProperty(key, folder string) ([]models.GroupedRecord, error) {
	all, err := db.groupedRecords(folder)
	if err != nil {
		return nil, err
	}
	var out []models.GroupedRecord
	for _, r := range all {
		for _, p := range r.Properties {
			if p.Key == key {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (db *DB) groupedRecords(folder string) ([]models.GroupedRecord, error) {
	q := `
		SELECT p.id, p.note_id, n.name, p.property_key, p.value_text, p.group_id
		FROM inline_properties p
		JOIN notes n ON n.id = p.note_id
		WHERE ` + visibleNotesCond
	args := []any{}
	if folder != "" {
		q += ` AND (n.folder = ? OR n.folder LIKE ?)`
		args = append(args, folder, folder+"/%")
	}
	q += ` ORDER BY p.note_id, p.char_start, p.id`

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: grouped records: %w", err)
	}
	defer rows.Close()

	// Step 1+2: one record per (note, group), ungrouped rows become
	// single-property records keyed by the negated row id.
	var (
		perNote   = make(map[int64][]*record)
		noteOrder []int64
		byGroup   = make(map[[2]int64]*record)
	)
	for rows.Next() {
		var (
			id, noteID int64
			name, key  string
			raw        string
			group      *int64
		)
		if err := rows.Scan(&id, &noteID, &name, &key, &raw, &group); err != nil {
			return nil, err
		}
		gid := -id
		if group != nil {
			gid = *group
		}
		k := [2]int64{noteID, gid}
		rec, ok := byGroup[k]
		if !ok {
			rec = &record{noteID: noteID, noteName: name, groupID: gid, props: make(map[string]string)}
			byGroup[k] = rec
			if len(perNote[noteID]) == 0 {
				noteOrder = append(noteOrder, noteID)
			}
			perNote[noteID] = append(perNote[noteID], rec)
		}
		if prev, dup := rec.props[key]; !dup || (prev == "" && raw != "") {
			rec.props[key] = raw
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []models.GroupedRecord
	for _, noteID := range noteOrder {
		recs := mergeRecords(perNote[noteID])
		recs = dedupRecords(recs)
		for _, r := range recs {
			out = append(out, r.toModel())
		}
	}
	return out, nil
}

// mergeRecords repeatedly folds together records of one note that share an
// identifying key with the same non-empty value. Missing keys are filled
// in; empty values lose to non-empty ones; positive group ids win so later
// edits can still address a real group.
func mergeRecords(recs []*record) []*record {
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(recs) && !merged; i++ {
			for j := i + 1; j < len(recs); j++ {
				if !sharesIdentityKey(recs[i], recs[j]) {
					continue
				}
				absorb(recs[i], recs[j])
				recs = append(recs[:j], recs[j+1:]...)
				merged = true
				break
			}
		}
	}
	return recs
}

func sharesIdentityKey(a, b *record) bool {
	for k, va := range a.props {
		if _, generic := genericKeys[k]; generic || va == "" {
			continue
		}
		if vb, ok := b.props[k]; ok && vb == va {
			return true
		}
	}
	return false
}

func absorb(dst, src *record) {
	for k, v := range src.props {
		if prev, ok := dst.props[k]; !ok || (prev == "" && v != "") {
			dst.props[k] = v
		}
	}
	if dst.groupID < 0 && src.groupID > 0 {
		dst.groupID = src.groupID
	}
}

// dedupRecords drops records whose full sorted property list already
// appeared for the same note, compared via a stable hash.
func dedupRecords(recs []*record) []*record {
	seen := make(map[uint64]struct{}, len(recs))
	out := recs[:0]
	for _, r := range recs {
		h := r.hash()
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (r *record) sortedProps() []models.RecordProperty {
	out := make([]models.RecordProperty, 0, len(r.props))
	for k, v := range r.props {
		out = append(out, models.RecordProperty{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *record) hash() uint64 {
	h := fnv.New64a()
	for _, p := range r.sortedProps() {
		h.Write([]byte(p.Key))
		h.Write([]byte{0})
		h.Write([]byte(p.Value))
		h.Write([]byte{1})
	}
	return h.Sum64()
}

func (r *record) toModel() models.GroupedRecord {
	return models.GroupedRecord{
		NoteID:     r.noteID,
		NoteName:   r.noteName,
		GroupID:    r.groupID,
		Properties: r.sortedProps(),
	}
}

// DiscoverRelatedColumns returns, alphabetically, every property key that
// shares at least one group with the given key. Hidden folders excluded.
func (db *DB) DiscoverRelatedColumns(key string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT p2.property_key
		FROM inline_properties p1
		JOIN inline_properties p2
			ON p2.note_id = p1.note_id AND p2.group_id = p1.group_id
		JOIN notes n ON n.id = p1.note_id
		WHERE p1.property_key = ?
		  AND p1.group_id IS NOT NULL
		  AND p2.property_key != p1.property_key
		  AND `+visibleNotesCond+`
		ORDER BY p2.property_key
	`, key)
	if err != nil {
		return nil, fmt.Errorf("index: related columns: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// PropertyGroup is one addressable group of stored properties, ordered by
// source position.
type PropertyGroup struct {
	GroupID    int64
	Properties []StoredProperty
}

// IdenticalGroups finds every group in a note whose sorted (key, value)
// list equals ref. Single ungrouped properties count as one-element groups.
func (db *DB) IdenticalGroups(noteID int64, ref []models.RecordProperty) ([]PropertyGroup, error) {
	props, err := db.NoteProperties(noteID)
	if err != nil {
		return nil, err
	}

	groups := make(map[int64][]StoredProperty)
	var order []int64
	for _, p := range props {
		gid := p.EffectiveGroupID()
		if _, ok := groups[gid]; !ok {
			order = append(order, gid)
		}
		groups[gid] = append(groups[gid], p)
	}

	want := append([]models.RecordProperty(nil), ref...)
	sort.Slice(want, func(i, j int) bool { return want[i].Key < want[j].Key })

	var out []PropertyGroup
	for _, gid := range order {
		g := groups[gid]
		got := make([]models.RecordProperty, 0, len(g))
		for _, p := range g {
			got = append(got, models.RecordProperty{Key: p.Key, Value: p.Raw})
		}
		sort.Slice(got, func(i, j int) bool { return got[i].Key < got[j].Key })
		if propListsEqual(got, want) {
			out = append(out, PropertyGroup{GroupID: gid, Properties: g})
		}
	}
	return out, nil
}

func propListsEqual(a, b []models.RecordProperty) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
