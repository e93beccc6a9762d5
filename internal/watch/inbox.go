package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mrlokans/marginalia/internal/store"
)

// settleDelay gives the writing process time to finish before the
// dropped file is read.
const settleDelay = 200 * time.Millisecond

// InboxWatcher imports every file dropped into a watched directory.
// An unambiguous file extension pins the parser, anything else is
// content-detected; imported files are removed so the inbox acts as a
// one-way funnel into the store.
type InboxWatcher struct {
	store *store.Manager
	dir   string
}

func NewInboxWatcher(manager *store.Manager, dir string) *InboxWatcher {
	return &InboxWatcher{store: manager, dir: dir}
}

// Run watches the inbox until the context is cancelled. Files already
// present at startup are imported first.
func (w *InboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	w.importExisting()
	log.Printf("Inbox watcher: watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.importFile(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Inbox watcher: %v", err)
		}
	}
}

func (w *InboxWatcher) importExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Printf("Inbox watcher: failed to list inbox: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.importFile(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *InboxWatcher) importFile(path string) {
	time.Sleep(settleDelay)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Inbox watcher: failed to read %s: %v", path, err)
		return
	}

	bundle, err := w.store.ImportFrom(string(data), w.store.FormatHintForFile(path))
	if err != nil {
		log.Printf("Inbox watcher: could not import %s: %v", path, err)
		return
	}

	log.Printf("Inbox watcher: imported %q (%d annotations) from %s",
		bundle.Metadata.Title, bundle.Metadata.TotalNotes, filepath.Base(path))

	if err := os.Remove(path); err != nil {
		log.Printf("Inbox watcher: failed to remove %s: %v", path, err)
	}
}
