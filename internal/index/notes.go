package index

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/parser"
)

// visibleNotesCond excludes notes living under the reserved hidden folders.
// Their rows stay in the store; only query output drops them.
const visibleNotesCond = `(n.folder NOT LIKE '.trash%' AND n.folder NOT LIKE '.history%')`

// IndexNote upserts a note by path and rebuilds everything derived from its
// content: FTS row, inline properties (with link resolution), and tag
// associations with usage counters. One transaction covers the whole call.
func (db *DB) IndexNote(name, path, content, folder string) error {
	return db.inTx(func(tx *sql.Tx) error {
		return indexNoteTx(tx, name, path, content, folder)
	})
}

// IndexNote indexes within an open batch transaction.
func (t *Tx) IndexNote(name, path, content, folder string) error {
	return indexNoteTx(t.tx, name, path, content, folder)
}

func indexNoteTx(tx *sql.Tx, name, path, content, folder string) error {
	now := time.Now().Unix()
	cs := checksum.SumString(content)

	_, err := tx.Exec(`
		INSERT INTO notes (name, path, folder, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			folder     = excluded.folder,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, name, path, folder, cs, now, now)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	var id int64
	if err := tx.QueryRow(`SELECT id FROM notes WHERE path = ?`, path).Scan(&id); err != nil {
		return fmt.Errorf("index: note id: %w", err)
	}

	if err := ftsReplace(tx, id, name, content); err != nil {
		return err
	}
	if err := syncInlineProperties(tx, id, content, now); err != nil {
		return err
	}
	return reconcileTags(tx, id, parser.ExtractAllTags(content))
}

// DeleteNoteByName removes a note and every dependent row: FTS, tag
// associations (counters decremented), inline properties, and embeddings
// keyed by its path. Tag rows themselves are kept.
func (db *DB) DeleteNoteByName(name string) error {
	return db.inTx(func(tx *sql.Tx) error {
		var (
			id   int64
			path string
		)
		err := tx.QueryRow(`SELECT id, path FROM notes WHERE name = ?`, name).Scan(&id, &path)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NoteNotFound(name)
		}
		if err != nil {
			return fmt.Errorf("index: find note: %w", err)
		}
		return deleteNoteTx(tx, id, path)
	})
}

// DeleteNoteByPath is the path-keyed variant used by the sync and watcher.
func (db *DB) DeleteNoteByPath(path string) error {
	return db.inTx(func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRow(`SELECT id FROM notes WHERE path = ?`, path).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("index: find note: %w", err)
		}
		return deleteNoteTx(tx, id, path)
	})
}

func deleteNoteTx(tx *sql.Tx, id int64, path string) error {
	if _, err := tx.Exec(`
		UPDATE tags SET usage_count = usage_count - 1
		WHERE id IN (SELECT tag_id FROM note_tags WHERE note_id = ?)
	`, id); err != nil {
		return fmt.Errorf("index: decrement tag counters: %w", err)
	}
	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM note_tags WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note tags: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM inline_properties WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note properties: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM note_embeddings WHERE note_path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note embeddings: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// RenameNote updates the note's name and path; the FTS name column and
// embedding rows follow in the same transaction.
func (db *DB) RenameNote(oldName, newName, newPath string) error {
	return db.inTx(func(tx *sql.Tx) error {
		var (
			id      int64
			oldPath string
		)
		err := tx.QueryRow(`SELECT id, path FROM notes WHERE name = ?`, oldName).Scan(&id, &oldPath)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NoteNotFound(oldName)
		}
		if err != nil {
			return fmt.Errorf("index: find note: %w", err)
		}
		if _, err := tx.Exec(`UPDATE notes SET name = ?, path = ?, updated_at = ? WHERE id = ?`,
			newName, newPath, time.Now().Unix(), id); err != nil {
			return fmt.Errorf("index: rename note: %w", err)
		}
		if err := ftsRename(tx, id, newName); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE note_embeddings SET note_path = ? WHERE note_path = ?`,
			newPath, oldPath); err != nil {
			return fmt.Errorf("index: rename embeddings: %w", err)
		}
		return nil
	})
}

// UpdateNotesFolder moves every note in folder old (or a descendant) to the
// corresponding folder under new, rewriting folder, absolute path, and
// embedding keys in lockstep.
func (db *DB) UpdateNotesFolder(old, new, root string) error {
	return db.inTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT id, path, folder FROM notes
			WHERE folder = ? OR folder LIKE ?
		`, old, old+"/%")
		if err != nil {
			return fmt.Errorf("index: list folder notes: %w", err)
		}
		type move struct {
			id               int64
			oldPath, newPath string
			newFolder        string
		}
		var moves []move
		for rows.Next() {
			var m move
			var folder string
			if err := rows.Scan(&m.id, &m.oldPath, &folder); err != nil {
				rows.Close()
				return err
			}
			m.newFolder = new + strings.TrimPrefix(folder, old)
			m.newPath = filepath.Join(root, m.newFolder, filepath.Base(m.oldPath))
			moves = append(moves, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := time.Now().Unix()
		for _, m := range moves {
			if _, err := tx.Exec(`UPDATE notes SET folder = ?, path = ?, updated_at = ? WHERE id = ?`,
				m.newFolder, m.newPath, now, m.id); err != nil {
				return fmt.Errorf("index: move note %d: %w", m.id, err)
			}
			if _, err := tx.Exec(`UPDATE note_embeddings SET note_path = ? WHERE note_path = ?`,
				m.newPath, m.oldPath); err != nil {
				return fmt.Errorf("index: move embeddings %d: %w", m.id, err)
			}
		}
		return nil
	})
}

// CleanupOrphanedNotes deletes notes whose path is absent from the on-disk
// set, then sweeps property rows whose owning note vanished. Per-item
// failures are logged and the pass continues.
func (db *DB) CleanupOrphanedNotes(pathsOnDisk map[string]struct{}, logger *slog.Logger) (int, error) {
	type orphan struct {
		id   int64
		path string
	}
	var orphans []orphan

	rows, err := db.conn.Query(`SELECT id, path FROM notes`)
	if err != nil {
		return 0, fmt.Errorf("index: list notes: %w", err)
	}
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.id, &o.path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := pathsOnDisk[o.path]; !ok {
			orphans = append(orphans, o)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, o := range orphans {
		err := db.inTx(func(tx *sql.Tx) error {
			return deleteNoteTx(tx, o.id, o.path)
		})
		if err != nil {
			if logger != nil {
				logger.Warn("cleanup: delete failed", slog.String("path", o.path), slog.String("error", err.Error()))
			}
			continue
		}
		removed++
	}

	err = db.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM inline_properties WHERE note_id NOT IN (SELECT id FROM notes)`)
		return err
	})
	if err != nil {
		return removed, fmt.Errorf("index: sweep dangling properties: %w", err)
	}
	return removed, nil
}

// GetNoteByName returns a note by its unique name.
func (db *DB) GetNoteByName(name string) (*models.Note, error) {
	return db.getNote(`WHERE name = ?`, name)
}

// GetNoteByPath returns a note by its path.
func (db *DB) GetNoteByPath(path string) (*models.Note, error) {
	return db.getNote(`WHERE path = ?`, path)
}

func (db *DB) getNote(where string, arg any) (*models.Note, error) {
	var n models.Note
	err := db.conn.QueryRow(`
		SELECT id, name, path, folder, order_index, icon, icon_color, created_at, updated_at
		FROM notes `+where, arg).
		Scan(&n.ID, &n.Name, &n.Path, &n.Folder, &n.OrderIndex, &n.Icon, &n.IconColor, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NoteNotFound(fmt.Sprint(arg))
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns visible notes, optionally restricted to a folder and
// its descendants, ordered by folder then name.
func (db *DB) ListNotes(folder string) ([]models.Note, error) {
	q := `
		SELECT n.id, n.name, n.path, n.folder, n.order_index, n.icon, n.icon_color, n.created_at, n.updated_at
		FROM notes n
		WHERE ` + visibleNotesCond
	args := []any{}
	if folder != "" {
		q += ` AND (n.folder = ? OR n.folder LIKE ?)`
		args = append(args, folder, folder+"/%")
	}
	q += ` ORDER BY n.folder, n.name`
	return db.queryNotes(q, args...)
}

// RecentNotes returns the most recently updated visible notes.
func (db *DB) RecentNotes(limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryNotes(`
		SELECT n.id, n.name, n.path, n.folder, n.order_index, n.icon, n.icon_color, n.created_at, n.updated_at
		FROM notes n
		WHERE `+visibleNotesCond+`
		ORDER BY n.updated_at DESC
		LIMIT ?
	`, limit)
}

func (db *DB) queryNotes(q string, args ...any) ([]models.Note, error) {
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Name, &n.Path, &n.Folder, &n.OrderIndex, &n.Icon, &n.IconColor, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
