// Package index provides the SQLite-backed note index: metadata, tags,
// full-text content, inline properties, grouped records, and bases.
package index

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func nowUnix() int64 { return time.Now().Unix() }

// DB wraps the single writable SQLite connection. Writes are serialized
// behind mu; parallel readers use ReadClone.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
	path string

	snippetOpen  string
	snippetClose string
}

// Option configures a DB at open time.
type Option func(*DB)

// WithSnippetTags sets the delimiters wrapped around search snippet matches.
func WithSnippetTags(open, close string) Option {
	return func(db *DB) {
		db.snippetOpen = open
		db.snippetClose = close
	}
}

// Open opens (or creates) the SQLite database, ensures the version table,
// applies the base schema, and migrates forward to the current version.
func Open(path string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}

	db := &DB{
		conn:         conn,
		path:         path,
		snippetOpen:  "<mark>",
		snippetClose: "</mark>",
	}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// ReadClone opens a second read-only connection to the same file. The clone
// shares no state with the writer and must be closed by the caller.
func (db *DB) ReadClone() (*DB, error) {
	conn, err := sql.Open("sqlite3", db.path+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("index: open read clone: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping read clone: %w", err)
	}
	return &DB{
		conn:         conn,
		path:         db.path,
		snippetOpen:  db.snippetOpen,
		snippetClose: db.snippetClose,
	}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Begin starts an explicit transaction for batch indexers. The write lock
// is held until Commit or Rollback via the returned Tx.
func (db *DB) Begin() (*Tx, error) {
	db.mu.Lock()
	tx, err := db.conn.Begin()
	if err != nil {
		db.mu.Unlock()
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	return &Tx{tx: tx, db: db}, nil
}

// Tx is an open batch transaction.
type Tx struct {
	tx   *sql.Tx
	db   *DB
	done bool
}

// Commit commits the batch and releases the write lock.
func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.db.mu.Unlock()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("index: commit tx: %w", err)
	}
	return nil
}

// Rollback aborts the batch and releases the write lock.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.db.mu.Unlock()
	return t.tx.Rollback()
}

// inTx runs fn inside a locked write transaction.
func (db *DB) inTx(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
