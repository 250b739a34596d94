package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/laguz/internal/property"
)

// StoredProperty is an inline_properties row.
type StoredProperty struct {
	ID           int64
	NoteID       int64
	Key          string
	Type         property.Kind
	Raw          string
	Line         int
	CharStart    int
	CharEnd      int
	LinkedNoteID *int64
	GroupID      *int64
}

// Value re-derives the typed value from the stored raw text. Inference is
// deterministic, so the result always agrees with the stored type column.
func (p StoredProperty) Value() property.Value {
	return property.Infer(p.Raw)
}

// EffectiveGroupID is the group id used by the record layer: the stored id
// for grouped rows, -row id for ungrouped ones.
func (p StoredProperty) EffectiveGroupID() int64 {
	if p.GroupID != nil {
		return *p.GroupID
	}
	return -p.ID
}

// SyncInlineProperties reparses content and replaces the note's property
// rows, re-resolving wikilink targets. Used after span edits rewrote the
// file outside a full re-index.
func (db *DB) SyncInlineProperties(noteID int64, content string) error {
	return db.inTx(func(tx *sql.Tx) error {
		return syncInlineProperties(tx, noteID, content, nowUnix())
	})
}

// syncInlineProperties deletes and reinserts the note's inline properties
// from a fresh parse of content.
func syncInlineProperties(tx *sql.Tx, noteID int64, content string, now int64) error {
	if _, err := tx.Exec(`DELETE FROM inline_properties WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("index: clear properties: %w", err)
	}

	props := property.ParseInline(content)
	if len(props) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO inline_properties
			(note_id, property_key, property_type, value_text, value_number, value_bool,
			 line_number, char_start, char_end, linked_note_id, group_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare property insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range props {
		var (
			num    sql.NullFloat64
			bl     sql.NullBool
			linked sql.NullInt64
			group  sql.NullInt64
		)
		switch p.Value.Kind {
		case property.KindNumber:
			num = sql.NullFloat64{Float64: p.Value.Number, Valid: true}
		case property.KindCheckbox:
			bl = sql.NullBool{Bool: p.Value.Bool, Valid: true}
		case property.KindLink:
			id, lookupErr := lookupNoteID(tx, p.Value.Text)
			switch {
			case lookupErr == nil:
				linked = sql.NullInt64{Int64: id, Valid: true}
			case !errors.Is(lookupErr, sql.ErrNoRows):
				return fmt.Errorf("index: resolve link target: %w", lookupErr)
			}
		}
		if p.GroupID != nil {
			group = sql.NullInt64{Int64: *p.GroupID, Valid: true}
		}
		if _, err := stmt.Exec(noteID, p.Key, string(p.Value.Kind), p.Raw, num, bl,
			p.Line, p.CharStart, p.CharEnd, linked, group, now, now); err != nil {
			return fmt.Errorf("index: insert property: %w", err)
		}
	}
	return nil
}

// lookupNoteID resolves a note name to its id. Missing targets are not an
// error; the property's linked_note_id stays null until a later re-sync.
func lookupNoteID(tx *sql.Tx, name string) (int64, error) {
	var id int64
	if err := tx.QueryRow(`SELECT id FROM notes WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// NoteProperties returns the stored inline properties of one note in source
// order.
func (db *DB) NoteProperties(noteID int64) ([]StoredProperty, error) {
	return db.queryProperties(`WHERE note_id = ? ORDER BY char_start, id`, noteID)
}

// PropertiesByKey returns every stored property with the given key,
// visible notes only.
func (db *DB) PropertiesByKey(key string) ([]StoredProperty, error) {
	rows, err := db.conn.Query(`
		SELECT p.id, p.note_id, p.property_key, p.property_type, p.value_text,
		       p.line_number, p.char_start, p.char_end, p.linked_note_id, p.group_id
		FROM inline_properties p
		JOIN notes n ON n.id = p.note_id
		WHERE p.property_key = ? AND `+visibleNotesCond+`
		ORDER BY p.note_id, p.char_start
	`, key)
	if err != nil {
		return nil, fmt.Errorf("index: properties by key: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

func (db *DB) queryProperties(where string, args ...any) ([]StoredProperty, error) {
	rows, err := db.conn.Query(`
		SELECT id, note_id, property_key, property_type, value_text,
		       line_number, char_start, char_end, linked_note_id, group_id
		FROM inline_properties `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query properties: %w", err)
	}
	defer rows.Close()
	return scanProperties(rows)
}

func scanProperties(rows *sql.Rows) ([]StoredProperty, error) {
	var out []StoredProperty
	for rows.Next() {
		var (
			p      StoredProperty
			kind   string
			linked sql.NullInt64
			group  sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.NoteID, &p.Key, &kind, &p.Raw,
			&p.Line, &p.CharStart, &p.CharEnd, &linked, &group); err != nil {
			return nil, err
		}
		p.Type = property.Kind(kind)
		if linked.Valid {
			v := linked.Int64
			p.LinkedNoteID = &v
		}
		if group.Valid {
			v := group.Int64
			p.GroupID = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
