package index

import (
	"bytes"
	"testing"
)

func TestCache_PutGet(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.CacheGet("missing"); err != nil || ok {
		t.Fatalf("CacheGet(missing) = ok=%v err=%v, want miss", ok, err)
	}

	vec := []byte{1, 2, 3, 4}
	if err := db.CachePut("semantic query", vec); err != nil {
		t.Fatalf("CachePut: %v", err)
	}
	got, ok, err := db.CacheGet("semantic query")
	if err != nil || !ok {
		t.Fatalf("CacheGet: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, vec) {
		t.Errorf("embedding = %v, want %v", got, vec)
	}

	_, _, _ = db.CacheGet("semantic query")
	entries, hits, err := db.CacheStats()
	if err != nil {
		t.Fatalf("CacheStats: %v", err)
	}
	if entries != 1 || hits != 2 {
		t.Errorf("entries=%d hits=%d, want 1 entry with 2 hits", entries, hits)
	}
}

func TestCache_PutRefreshes(t *testing.T) {
	db := testDB(t)
	_ = db.CachePut("q", []byte{1})
	_ = db.CachePut("q", []byte{9})

	got, ok, _ := db.CacheGet("q")
	if !ok || !bytes.Equal(got, []byte{9}) {
		t.Errorf("embedding = %v, want refreshed value", got)
	}
	entries, _, _ := db.CacheStats()
	if entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}
}

func TestCleanOldCache(t *testing.T) {
	db := testDB(t)
	_ = db.CachePut("fresh", []byte{1})
	_ = db.CachePut("stale", []byte{2})

	// Backdate the stale entry past the retention window.
	if _, err := db.conn.Exec(`UPDATE query_cache SET last_used_at = last_used_at - 90*86400 WHERE query_text = 'stale'`); err != nil {
		t.Fatal(err)
	}

	removed, err := db.CleanOldCache(30)
	if err != nil {
		t.Fatalf("CleanOldCache: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok, _ := db.CacheGet("fresh"); !ok {
		t.Error("fresh entry evicted")
	}
	if _, ok, _ := db.CacheGet("stale"); ok {
		t.Error("stale entry survived")
	}
}
