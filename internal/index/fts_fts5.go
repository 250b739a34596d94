//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/laguz/internal/models"
)

// The original index tokenized with a porter stemmer, which broke prefix
// queries ("key*" missed "keybindings"). Migration 5 rebuilds the table
// without stemming; fresh databases still pass through both states so the
// chain stays append-only.
const (
	ftsCreateLegacySQL = `
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			name,
			content,
			tokenize = 'porter unicode61'
		);`
	ftsCreateSQL = `
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			name,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);`
)

func ftsCreateLegacy(conn *sql.DB) error {
	_, err := conn.Exec(ftsCreateLegacySQL)
	return err
}

// migrateFTSTokenizer rebuilds the FTS table with the non-stemming
// tokenizer, preserving rowids: backup, drop, recreate, reinsert.
func migrateFTSTokenizer(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notes_fts_backup AS SELECT rowid AS note_id, name, content FROM notes_fts`,
		`DROP TABLE notes_fts`,
		ftsCreateSQL,
		`INSERT INTO notes_fts (rowid, name, content) SELECT note_id, name, content FROM notes_fts_backup`,
		`DROP TABLE notes_fts_backup`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func ftsReplace(tx *sql.Tx, id int64, name, content string) error {
	if _, err := tx.Exec(`INSERT OR REPLACE INTO notes_fts (rowid, name, content) VALUES (?, ?, ?)`,
		id, name, content); err != nil {
		return fmt.Errorf("index: replace fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id int64) error {
	if _, err := tx.Exec(`DELETE FROM notes_fts WHERE rowid = ?`, id); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

func ftsRename(tx *sql.Tx, id int64, name string) error {
	if _, err := tx.Exec(`UPDATE notes_fts SET name = ? WHERE rowid = ?`, name, id); err != nil {
		return fmt.Errorf("index: rename fts: %w", err)
	}
	return nil
}

// ftsMatch runs an FTS5 MATCH query joined back to live notes, snippets
// included, hidden folders excluded.
func (db *DB) ftsMatch(match string, limit int) ([]models.SearchResult, error) {
	rows, err := db.conn.Query(`
		SELECT n.id, n.name, n.path, n.folder,
		       snippet(notes_fts, -1, ?, ?, '...', 32),
		       rank
		FROM notes_fts
		JOIN notes n ON n.id = notes_fts.rowid
		WHERE notes_fts MATCH ? AND `+visibleNotesCond+`
		ORDER BY rank
		LIMIT ?
	`, db.snippetOpen, db.snippetClose, match, limit)
	if err != nil {
		return nil, fmt.Errorf("index: fts search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.Folder, &r.Snippet, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
