package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/entities"
)

func testBundle(title string) *entities.BookBundle {
	bundle := &entities.BookBundle{
		Metadata: entities.BookMetadata{Title: title, Author: "Someone"},
		Annotations: []*entities.Annotation{
			{
				ID:        "w-1",
				BookTitle: title,
				Kind:      entities.KindHighlight,
				Content:   "remembered line",
				CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				Source:    entities.SourceWeRead,
			},
		},
	}
	bundle.Recount()
	return bundle
}

func TestBundleStore_SaveAndLoadAll(t *testing.T) {
	store := NewBundleStore(t.TempDir())

	path, err := store.Save(testBundle("Round Trip"))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, "Round_Trip.json", filepath.Base(path))

	bundles, errs := store.LoadAll()
	require.Empty(t, errs)
	require.Len(t, bundles, 1)
	assert.Equal(t, "Round Trip", bundles[0].Metadata.Title)
	require.Len(t, bundles[0].Annotations, 1)
	assert.Equal(t, "remembered line", bundles[0].Annotations[0].Content)
	assert.Equal(t, 1, bundles[0].Metadata.TotalNotes)
}

func TestBundleStore_LoadAllSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewBundleStore(dir)

	_, err := store.Save(testBundle("Good Book"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0644))

	bundles, errs := store.LoadAll()
	assert.Len(t, errs, 1)
	require.Len(t, bundles, 1)
	assert.Equal(t, "Good Book", bundles[0].Metadata.Title)
}

func TestBundleStore_LoadAllMissingDirectory(t *testing.T) {
	store := NewBundleStore(filepath.Join(t.TempDir(), "does-not-exist"))
	bundles, errs := store.LoadAll()
	assert.Nil(t, bundles)
	assert.Nil(t, errs)
}

func TestBundleStore_Remove(t *testing.T) {
	store := NewBundleStore(t.TempDir())

	_, err := store.Save(testBundle("Ephemeral"))
	require.NoError(t, err)

	require.NoError(t, store.Remove("Ephemeral"))
	assert.NoFileExists(t, store.Path("Ephemeral"))

	// Removing a title that was never saved is fine.
	assert.NoError(t, store.Remove("Never Saved"))
}

func TestBundleStore_SaveOverwrites(t *testing.T) {
	store := NewBundleStore(t.TempDir())

	bundle := testBundle("Same Title")
	_, err := store.Save(bundle)
	require.NoError(t, err)

	bundle.Annotations[0].Content = "edited line"
	_, err = store.Save(bundle)
	require.NoError(t, err)

	bundles, errs := store.LoadAll()
	require.Empty(t, errs)
	require.Len(t, bundles, 1)
	assert.Equal(t, "edited line", bundles[0].Annotations[0].Content)
}
