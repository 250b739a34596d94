//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/laguz/internal/models"
)

// Without the sqlite_fts5 build tag the content table is a plain table and
// matching degrades to LIKE. Schema shape and rowids stay identical so the
// two builds share every other statement.
const ftsCreateSQL = `
	CREATE TABLE IF NOT EXISTS notes_fts (
		note_id INTEGER PRIMARY KEY,
		name    TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT ''
	);`

func ftsCreateLegacy(conn *sql.DB) error {
	_, err := conn.Exec(ftsCreateSQL)
	return err
}

// migrateFTSTokenizer is a no-op for the plain table; there is no tokenizer
// to change. The version bump still happens so both builds agree on the
// stored schema version.
func migrateFTSTokenizer(_ *sql.Tx) error { return nil }

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

// ftsMatch approximates the FTS5 query with an AND of LIKE terms. Prefix
// stars and quotes from the built match expression are dropped.
func (db *DB) ftsMatch(match string, limit int) ([]models.SearchResult, error) {
	terms := strings.Fields(strings.NewReplacer(`"`, "", "*", "").Replace(match))
	var (
		conds []string
		args  []any
	)
	for _, t := range terms {
		if strings.EqualFold(t, "AND") {
			continue
		}
		conds = append(conds, `(n.name LIKE ? OR f.content LIKE ?)`)
		like := "%" + t + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT n.id, n.name, n.path, n.folder, substr(f.content, 1, 200)
		FROM notes_fts f
		JOIN notes n ON n.id = f.rowid
		WHERE `+strings.Join(conds, " AND ")+` AND `+visibleNotesCond+`
		ORDER BY n.updated_at DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: fallback search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Path, &r.Folder, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
