package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/laguz/internal/apperr"
)

// BaseRow is a persisted base definition. The YAML blob is opaque at this
// layer; the base package decodes and validates it.
type BaseRow struct {
	ID           int64
	Name         string
	Description  string
	SourceFolder string
	ConfigYAML   string
	ActiveView   int
	CreatedAt    int64
	UpdatedAt    int64
}

// CreateBase inserts a new base and returns its id. Names are unique.
func (db *DB) CreateBase(b BaseRow) (int64, error) {
	var id int64
	err := db.inTx(func(tx *sql.Tx) error {
		now := nowUnix()
		res, err := tx.Exec(`
			INSERT INTO bases (name, description, source_folder, config_yaml, active_view, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.Name, b.Description, b.SourceFolder, b.ConfigYAML, b.ActiveView, now, now)
		if err != nil {
			return fmt.Errorf("index: create base: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// UpdateBase replaces every mutable column of an existing base.
func (db *DB) UpdateBase(b BaseRow) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE bases SET
				name          = ?,
				description   = ?,
				source_folder = ?,
				config_yaml   = ?,
				active_view   = ?,
				updated_at    = ?
			WHERE id = ?
		`, b.Name, b.Description, b.SourceFolder, b.ConfigYAML, b.ActiveView, nowUnix(), b.ID)
		if err != nil {
			return fmt.Errorf("index: update base: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.BaseNotFound(fmt.Sprint(b.ID))
		}
		return nil
	})
}

// DeleteBase removes a base definition.
func (db *DB) DeleteBase(id int64) error {
	return db.inTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM bases WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("index: delete base: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.BaseNotFound(fmt.Sprint(id))
		}
		return nil
	})
}

// GetBase fetches one base by id.
func (db *DB) GetBase(id int64) (*BaseRow, error) {
	return db.getBase(`WHERE id = ?`, id)
}

// GetBaseByName fetches one base by its unique name.
func (db *DB) GetBaseByName(name string) (*BaseRow, error) {
	return db.getBase(`WHERE name = ?`, name)
}

func (db *DB) getBase(where string, arg any) (*BaseRow, error) {
	var b BaseRow
	err := db.conn.QueryRow(`
		SELECT id, name, description, source_folder, config_yaml, active_view, created_at, updated_at
		FROM bases `+where, arg).
		Scan(&b.ID, &b.Name, &b.Description, &b.SourceFolder, &b.ConfigYAML, &b.ActiveView, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.BaseNotFound(fmt.Sprint(arg))
	}
	if err != nil {
		return nil, fmt.Errorf("index: get base: %w", err)
	}
	return &b, nil
}

// ListBases returns every base ordered by name.
func (db *DB) ListBases() ([]BaseRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, description, source_folder, config_yaml, active_view, created_at, updated_at
		FROM bases ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list bases: %w", err)
	}
	defer rows.Close()

	var out []BaseRow
	for rows.Next() {
		var b BaseRow
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.SourceFolder, &b.ConfigYAML, &b.ActiveView, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
