package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/laguz/internal/storage"
)

// renameSettle is how long the watcher waits after a rename burst before
// reconciling the index against the disk.
const renameSettle = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch runs an fsnotify loop over the vault until ctx is cancelled,
// keeping the index in step with external edits. Directories created at
// runtime join the watch list; renames schedule a short reconciliation
// pass because fsnotify only reports the old path.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	vaultRoot := store.Root()
	if err := watchTree(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleReconcile := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(renameSettle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(renameSettle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := watchTree(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					// A moved-in directory can already hold notes.
					indexDirTree(db, store, vaultRoot, ev.Name, logger, cb)
					continue
				}
			}
			if handleNoteEvent(db, store, vaultRoot, ev, logger, cb) {
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleNoteEvent applies one fsnotify event for a note file to the index.
// It reports whether a reconciliation pass should be scheduled.
func handleNoteEvent(db *DB, store storage.Provider, vaultRoot string, ev fsnotify.Event, logger *slog.Logger, cb EventCallback) bool {
	if !strings.HasSuffix(ev.Name, ".md") {
		return false
	}
	rel, relErr := filepath.Rel(vaultRoot, ev.Name)
	if relErr != nil {
		return false
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, readErr := store.Read(rel)
		if readErr != nil {
			logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
			return false
		}
		if idxErr := indexNoteFile(db, store, rel, data); idxErr != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			return false
		}
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, rel)
		}

	case ev.Op&fsnotify.Remove != 0:
		if delErr := db.DeleteNoteByPath(ev.Name); delErr != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
			return false
		}
		logger.Debug("watcher: deleted", slog.String("path", rel))
		if cb != nil {
			cb("deleted", rel)
		}

	case ev.Op&fsnotify.Rename != 0:
		// Rename fires on the old path; the destination shows up later as
		// a Create if it lands inside a watched directory. Drop the old
		// entry now and let the settle pass catch whatever the Create
		// events missed.
		if delErr := db.DeleteNoteByPath(ev.Name); delErr != nil {
			logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
		} else {
			logger.Debug("watcher: rename old deleted", slog.String("path", rel))
			if cb != nil {
				cb("deleted", rel)
			}
		}
		return true
	}
	return false
}

// reconcile compares the index against the disk in both directions:
// stale rows whose files are gone get removed, and files whose checksum
// differs from the indexed one get re-indexed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	relOf := make(map[string]string, len(metas))
	for _, m := range metas {
		abs := filepath.Join(store.Root(), m.Path)
		disk[abs] = m.Checksum
		relOf[abs] = m.Path
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteNoteByPath(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for abs, cs := range disk {
		if checksums[abs] == cs {
			continue
		}
		rel := relOf[abs]
		data, readErr := store.Read(rel)
		if readErr != nil {
			continue
		}
		if idxErr := indexNoteFile(db, store, rel, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
		}
	}
}

// indexDirTree indexes every note under a directory that appeared whole.
func indexDirTree(db *DB, store storage.Provider, vaultRoot, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			return nil
		}
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := indexNoteFile(db, store, rel, data); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
		}
		return nil
	})
}

// watchTree adds root and every directory below it to the watcher.
func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
