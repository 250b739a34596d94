package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// reconcileTags diffs the note's stored tag set against want (already
// normalized) and applies the difference, keeping usage counters exact.
func reconcileTags(tx *sql.Tx, noteID int64, want []string) error {
	rows, err := tx.Query(`
		SELECT t.id, t.name FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		WHERE nt.note_id = ?
	`, noteID)
	if err != nil {
		return fmt.Errorf("index: current tags: %w", err)
	}
	current := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		current[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	wanted := make(map[string]struct{}, len(want))
	for _, t := range want {
		wanted[t] = struct{}{}
	}

	for name, id := range current {
		if _, keep := wanted[name]; keep {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?`, noteID, id); err != nil {
			return fmt.Errorf("index: unlink tag: %w", err)
		}
		if _, err := tx.Exec(`UPDATE tags SET usage_count = usage_count - 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("index: decrement tag: %w", err)
		}
	}

	for _, name := range want {
		if _, have := current[name]; have {
			continue
		}
		id, err := ensureTag(tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`, noteID, id); err != nil {
			return fmt.Errorf("index: link tag: %w", err)
		}
		if _, err := tx.Exec(`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("index: increment tag: %w", err)
		}
	}
	return nil
}

// ensureTag returns the id of the tag named name, creating the row on first
// reference. Lookup is case-insensitive.
func ensureTag(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("index: find tag: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("index: create tag: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("index: tag id: %w", err)
	}
	return id, nil
}

// ListTags returns every tag with its usage counter, most used first.
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.conn.Query(`SELECT id, name, color, usage_count FROM tags ORDER BY usage_count DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("index: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.UsageCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// NotesWithTag returns visible notes associated with the tag, matched by
// case-insensitive equality, capped at limit (default 50).
func (db *DB) NotesWithTag(tag string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryNotes(`
		SELECT n.id, n.name, n.path, n.folder, n.order_index, n.icon, n.icon_color, n.created_at, n.updated_at
		FROM notes n
		JOIN note_tags nt ON nt.note_id = n.id
		JOIN tags t ON t.id = nt.tag_id
		WHERE t.name = ? AND `+visibleNotesCond+`
		ORDER BY n.updated_at DESC
		LIMIT ?
	`, tag, limit)
}

// NoteTags returns the tag names associated with one note, sorted.
func (db *DB) NoteTags(noteID int64) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT t.name FROM tags t
		JOIN note_tags nt ON nt.tag_id = t.id
		WHERE nt.note_id = ?
		ORDER BY t.name
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("index: note tags: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SetTagColor stores a display color for a tag.
func (db *DB) SetTagColor(name, color string) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE tags SET color = ? WHERE name = ?`, color, name)
		if err != nil {
			return fmt.Errorf("index: set tag color: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("index: tag %q: %w", name, apperr.ErrNotFound)
		}
		return nil
	})
}
