package index

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/laguz/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and indexed
//   - rows whose files vanished are reaped with the full cascade
//
// Per-item failures are logged and the pass continues.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		abs := filepath.Join(store.Root(), m.Path)
		disk[abs] = struct{}{}

		if checksums[abs] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexNoteFile(db, store, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	removed, err := db.CleanupOrphanedNotes(disk, logger)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("sync: reaped orphans", slog.Int("count", removed))
	}
	return nil
}

// indexNoteFile derives the note identity from its vault-relative path and
// indexes the content.
func indexNoteFile(db *DB, store storage.Provider, rel string, data []byte) error {
	name := strings.TrimSuffix(filepath.Base(rel), ".md")
	folder := filepath.Dir(rel)
	if folder == "." {
		folder = ""
	}
	abs := filepath.Join(store.Root(), rel)
	return db.IndexNote(name, abs, string(data), folder)
}
