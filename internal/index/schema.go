package index

import (
	"database/sql"
	"fmt"
)

// schemaVersion is the version the migration chain converges on. The chain
// is append-only: never rewrite a historical migration, add a new one.
const schemaVersion = 5

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	path        TEXT NOT NULL UNIQUE,
	folder      TEXT NOT NULL DEFAULT '',
	order_index INTEGER NOT NULL DEFAULT 0,
	icon        TEXT NOT NULL DEFAULT '',
	icon_color  TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder);

CREATE TABLE IF NOT EXISTS tags (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE COLLATE NOCASE,
	color       TEXT NOT NULL DEFAULT '',
	usage_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id INTEGER NOT NULL,
	tag_id  INTEGER NOT NULL,
	UNIQUE(note_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_note ON note_tags(note_id);
CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);
`

const embeddingsSchemaSQL = `
CREATE TABLE IF NOT EXISTS note_embeddings (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note_path   TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	chunk_text  TEXT NOT NULL,
	embedding   BLOB NOT NULL,
	token_count INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL,
	UNIQUE(note_path, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_path ON note_embeddings(note_path);
`

const queryCacheSchemaSQL = `
CREATE TABLE IF NOT EXISTS query_cache (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	query_hash   TEXT NOT NULL UNIQUE,
	query_text   TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	hits         INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL,
	last_used_at INTEGER NOT NULL
);
`

const propertiesSchemaSQL = `
CREATE TABLE IF NOT EXISTS inline_properties (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id        INTEGER NOT NULL,
	property_key   TEXT NOT NULL,
	property_type  TEXT NOT NULL,
	value_text     TEXT NOT NULL DEFAULT '',
	value_number   REAL,
	value_bool     INTEGER,
	line_number    INTEGER NOT NULL,
	char_start     INTEGER NOT NULL,
	char_end       INTEGER NOT NULL,
	linked_note_id INTEGER,
	group_id       INTEGER,
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_props_note ON inline_properties(note_id);
CREATE INDEX IF NOT EXISTS idx_props_key ON inline_properties(property_key);
CREATE INDEX IF NOT EXISTS idx_props_group ON inline_properties(note_id, group_id);

CREATE TABLE IF NOT EXISTS folders (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	path        TEXT NOT NULL UNIQUE,
	icon        TEXT NOT NULL DEFAULT '',
	icon_color  TEXT NOT NULL DEFAULT '',
	color       TEXT NOT NULL DEFAULT '',
	order_index INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bases (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	description   TEXT NOT NULL DEFAULT '',
	source_folder TEXT NOT NULL DEFAULT '',
	config_yaml   TEXT NOT NULL DEFAULT '',
	active_view   INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
`

// migrate ensures the version singleton, applies the base schema, and runs
// every pending migration in order. Each migration is idempotent and bumps
// the stored version by exactly one inside its own transaction.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("index: create version table: %w", err)
	}

	var v int
	err := db.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&v)
	if err == sql.ErrNoRows {
		v = 1
		if _, err := db.conn.Exec(`INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return fmt.Errorf("index: init version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("index: read version: %w", err)
	}

	// v1: core tables plus the original FTS table. IF NOT EXISTS keeps this
	// safe on every open.
	if _, err := db.conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := ftsCreateLegacy(db.conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}

	steps := []struct {
		to    int
		apply func(tx *sql.Tx) error
	}{
		{2, migrateEmbeddings},
		{3, migrateQueryCache},
		{4, migrateProperties},
		{5, migrateFTSTokenizer},
	}
	for _, step := range steps {
		if v >= step.to {
			continue
		}
		if err := db.runMigration(step.to, step.apply); err != nil {
			return err
		}
		v = step.to
	}
	return nil
}

func (db *DB) runMigration(to int, apply func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin migration %d: %w", to, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := apply(tx); err != nil {
		return fmt.Errorf("index: migration %d: %w", to, err)
	}
	if _, err := tx.Exec(`DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("index: migration %d bump: %w", to, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, to); err != nil {
		return fmt.Errorf("index: migration %d bump: %w", to, err)
	}
	return tx.Commit()
}

func migrateEmbeddings(tx *sql.Tx) error {
	_, err := tx.Exec(embeddingsSchemaSQL)
	return err
}

func migrateQueryCache(tx *sql.Tx) error {
	_, err := tx.Exec(queryCacheSchemaSQL)
	return err
}

func migrateProperties(tx *sql.Tx) error {
	_, err := tx.Exec(propertiesSchemaSQL)
	return err
}

// Version reports the stored schema version.
func (db *DB) Version() (int, error) {
	var v int
	if err := db.conn.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("index: read version: %w", err)
	}
	return v, nil
}
