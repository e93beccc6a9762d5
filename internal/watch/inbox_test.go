package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/store"
)

func waitForBook(t *testing.T, manager *store.Manager, title string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := manager.GetBook(title); ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("book %q never appeared in the store", title)
}

func TestInboxWatcher_ImportsDroppedFile(t *testing.T) {
	manager := store.NewManager(store.Options{})
	inboxDir := filepath.Join(t.TempDir(), "inbox")
	watcher := NewInboxWatcher(manager, inboxDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Give the watcher time to set up before dropping a file.
	time.Sleep(100 * time.Millisecond)

	blob := `{"bookTitle": "Dropped Book", "notes": [{"content": "from inbox"}]}`
	path := filepath.Join(inboxDir, "export.json")
	require.NoError(t, os.WriteFile(path, []byte(blob), 0644))

	waitForBook(t, manager, "Dropped Book")

	// Imported files are removed from the inbox.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestInboxWatcher_ImportsPreexistingFiles(t *testing.T) {
	manager := store.NewManager(store.Options{})
	inboxDir := t.TempDir()

	blob := `{"bookTitle": "Waiting Book", "notes": [{"content": "was here first"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(inboxDir, "old.json"), []byte(blob), 0644))

	watcher := NewInboxWatcher(manager, inboxDir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	waitForBook(t, manager, "Waiting Book")

	cancel()
	require.NoError(t, <-done)
}
