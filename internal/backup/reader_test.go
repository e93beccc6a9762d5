package backup

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/entities"
)

func createFixtureDB(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "backup.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE notes (
		_id INTEGER PRIMARY KEY,
		book TEXT NOT NULL,
		author TEXT,
		chapter TEXT,
		summary TEXT,
		remark TEXT,
		notetype INTEGER,
		notetime INTEGER NOT NULL,
		markcolor TEXT
	);`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO notes
		(_id, book, author, chapter, summary, remark, notetype, notetime, markcolor)
		VALUES
		(1, '三体', '刘慈欣', '第一章', '宇宙很大，生活更大', '', 0, 1700000000000, '#ffff00'),
		(2, '三体', '刘慈欣', '第一章', '', '值得重读的一段', 1, 1700001000000, ''),
		(3, 'Other Book', NULL, NULL, 'plain highlight', NULL, NULL, 1700002000000, NULL);`)
	require.NoError(t, err)

	return dbPath
}

func TestBackupDBReader_GetNotes(t *testing.T) {
	reader := NewBackupDBReader(createFixtureDB(t))

	notes, err := reader.GetNotes()
	require.NoError(t, err)
	require.Len(t, notes, 3)

	assert.Equal(t, int64(1), notes[0].ID)
	assert.Equal(t, "三体", notes[0].BookTitle)
	assert.Equal(t, "刘慈欣", notes[0].Author)
	assert.Equal(t, "宇宙很大，生活更大", notes[0].Summary)
	assert.Equal(t, "#ffff00", notes[0].Color)

	// NULL columns come back as zero values.
	assert.Empty(t, notes[2].Author)
	assert.Empty(t, notes[2].Chapter)
	assert.Equal(t, 0, notes[2].NoteType)
}

func TestBackupDBReader_MissingDatabase(t *testing.T) {
	reader := NewBackupDBReader(filepath.Join(t.TempDir(), "nope.db"))

	_, err := reader.GetNotes()
	assert.Error(t, err)
}

func TestToBundles(t *testing.T) {
	reader := NewBackupDBReader(createFixtureDB(t))
	notes, err := reader.GetNotes()
	require.NoError(t, err)

	bundles := ToBundles(notes)
	require.Len(t, bundles, 2)

	first := bundles[0]
	assert.Equal(t, "三体", first.Metadata.Title)
	assert.Equal(t, "刘慈欣", first.Metadata.Author)
	assert.Equal(t, 2, first.Metadata.TotalNotes)

	highlight := first.Annotations[0]
	assert.Equal(t, "backup-1", highlight.ID)
	assert.Equal(t, entities.KindHighlight, highlight.Kind)
	assert.Equal(t, "宇宙很大，生活更大", highlight.Content)
	assert.Equal(t, "第一章", highlight.Chapter)
	assert.Equal(t, entities.SourceIReader, highlight.Source)
	assert.Equal(t, int64(1700000000), highlight.CreatedAt.Unix())

	// Pure note rows use the remark as content.
	note := first.Annotations[1]
	assert.Equal(t, entities.KindNote, note.Kind)
	assert.Equal(t, "值得重读的一段", note.Content)

	second := bundles[1]
	assert.Equal(t, "Other Book", second.Metadata.Title)
	assert.Equal(t, 1, second.Metadata.TotalNotes)
}

func TestToBundles_EmptyTitleFallsBack(t *testing.T) {
	bundles := ToBundles([]*BackupNote{{ID: 1, BookTitle: "", Summary: "x", TimeMs: 1}})
	require.Len(t, bundles, 1)
	assert.Equal(t, entities.UnknownBookTitle, bundles[0].Metadata.Title)
}
