package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/laguz/internal/checksum"
)

// CacheGet looks up a cached query embedding by the SHA-256 of the query
// text. A hit bumps the counter and the LRU timestamp.
func (db *DB) CacheGet(query string) ([]byte, bool, error) {
	hash := checksum.SumString(query)

	var blob []byte
	err := db.conn.QueryRow(`SELECT embedding FROM query_cache WHERE query_hash = ?`, hash).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("index: cache get: %w", err)
	}

	err = db.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`UPDATE query_cache SET hits = hits + 1, last_used_at = ? WHERE query_hash = ?`,
			nowUnix(), hash)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("index: cache touch: %w", err)
	}
	return blob, true, nil
}

// CachePut stores (or refreshes) the embedding for a query.
func (db *DB) CachePut(query string, embedding []byte) error {
	return db.inTx(func(tx *sql.Tx) error {
		now := nowUnix()
		_, err := tx.Exec(`
			INSERT INTO query_cache (query_hash, query_text, embedding, hits, created_at, last_used_at)
			VALUES (?, ?, ?, 0, ?, ?)
			ON CONFLICT(query_hash) DO UPDATE SET
				embedding    = excluded.embedding,
				last_used_at = excluded.last_used_at
		`, checksum.SumString(query), query, embedding, now, now)
		if err != nil {
			return fmt.Errorf("index: cache put: %w", err)
		}
		return nil
	})
}

// CleanOldCache deletes cache rows unused for more than the given number
// of days and reports how many were removed.
func (db *DB) CleanOldCache(days int) (int64, error) {
	var removed int64
	err := db.inTx(func(tx *sql.Tx) error {
		cutoff := nowUnix() - int64(days)*86400
		res, err := tx.Exec(`DELETE FROM query_cache WHERE last_used_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("index: clean cache: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// CacheStats reports the number of cached queries and their accumulated
// hit count.
func (db *DB) CacheStats() (entries int, hits int64, err error) {
	err = db.conn.QueryRow(`SELECT COUNT(*), COALESCE(SUM(hits), 0) FROM query_cache`).Scan(&entries, &hits)
	if err != nil {
		return 0, 0, fmt.Errorf("index: cache stats: %w", err)
	}
	return entries, hits, nil
}
