package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/laguz/internal/models"
)

// UpsertEmbedding stores one chunk embedding, replacing any previous chunk
// at the same (path, index).
func (db *DB) UpsertEmbedding(e models.Embedding) error {
	return db.inTx(func(tx *sql.Tx) error {
		now := nowUnix()
		_, err := tx.Exec(`
			INSERT INTO note_embeddings (note_path, chunk_index, chunk_text, embedding, token_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(note_path, chunk_index) DO UPDATE SET
				chunk_text  = excluded.chunk_text,
				embedding   = excluded.embedding,
				token_count = excluded.token_count,
				updated_at  = excluded.updated_at
		`, e.NotePath, e.ChunkIndex, e.ChunkText, e.Vector, e.TokenCount, now, now)
		if err != nil {
			return fmt.Errorf("index: upsert embedding: %w", err)
		}
		return nil
	})
}

// Embeddings returns the stored chunks for one note path in chunk order.
func (db *DB) Embeddings(notePath string) ([]models.Embedding, error) {
	rows, err := db.conn.Query(`
		SELECT id, note_path, chunk_index, chunk_text, embedding, token_count, created_at, updated_at
		FROM note_embeddings
		WHERE note_path = ?
		ORDER BY chunk_index
	`, notePath)
	if err != nil {
		return nil, fmt.Errorf("index: embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.Embedding
	for rows.Next() {
		var e models.Embedding
		if err := rows.Scan(&e.ID, &e.NotePath, &e.ChunkIndex, &e.ChunkText, &e.Vector, &e.TokenCount, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEmbeddings drops every chunk stored for one note path.
func (db *DB) DeleteEmbeddings(notePath string) error {
	return db.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM note_embeddings WHERE note_path = ?`, notePath); err != nil {
			return fmt.Errorf("index: delete embeddings: %w", err)
		}
		return nil
	})
}
