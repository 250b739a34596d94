package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/laguz/internal/models"
)

// UpsertFolder records a vault folder with its display metadata.
func (db *DB) UpsertFolder(f models.Folder) error {
	return db.inTx(func(tx *sql.Tx) error {
		now := nowUnix()
		_, err := tx.Exec(`
			INSERT INTO folders (path, icon, icon_color, color, order_index, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				icon        = excluded.icon,
				icon_color  = excluded.icon_color,
				color       = excluded.color,
				order_index = excluded.order_index,
				updated_at  = excluded.updated_at
		`, f.Path, f.Icon, f.IconColor, f.Color, f.OrderIndex, now, now)
		if err != nil {
			return fmt.Errorf("index: upsert folder: %w", err)
		}
		return nil
	})
}

// ListFolders returns every recorded folder ordered by its order index,
// then path.
func (db *DB) ListFolders() ([]models.Folder, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, icon, icon_color, color, order_index, created_at, updated_at
		FROM folders
		ORDER BY order_index, path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list folders: %w", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Path, &f.Icon, &f.IconColor, &f.Color, &f.OrderIndex, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFolder forgets a folder row. Notes inside it are untouched; moving
// them is UpdateNotesFolder's job.
func (db *DB) DeleteFolder(path string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM folders WHERE path = ?`, path); err != nil {
			return fmt.Errorf("index: delete folder: %w", err)
		}
		return nil
	})
}
