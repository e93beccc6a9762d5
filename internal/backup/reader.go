package backup

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/mrlokans/marginalia/internal/entities"
)

// BackupNote is one row of the e-reader backup database notes table.
type BackupNote struct {
	ID        int64
	BookTitle string
	Author    string
	Chapter   string
	Summary   string
	Remark    string
	NoteType  int
	TimeMs    int64
	Color     string
}

// BackupDBReader reads annotations from an e-reader backup SQLite
// database, the on-device sibling of the text export formats.
type BackupDBReader struct {
	dbPath string
}

func NewBackupDBReader(dbPath string) *BackupDBReader {
	return &BackupDBReader{dbPath: dbPath}
}

// GetNotes retrieves all note rows from the backup database.
func (r *BackupDBReader) GetNotes() ([]*BackupNote, error) {
	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	query := `
		SELECT
			_id,
			book,
			author,
			chapter,
			summary,
			remark,
			notetype,
			notetime,
			markcolor
		FROM notes;
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*BackupNote
	for rows.Next() {
		note := &BackupNote{}
		var author, chapter, summary, remark, color sql.NullString
		var noteType sql.NullInt64

		err := rows.Scan(
			&note.ID,
			&note.BookTitle,
			&author,
			&chapter,
			&summary,
			&remark,
			&noteType,
			&note.TimeMs,
			&color,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		note.Author = author.String
		note.Chapter = chapter.String
		note.Summary = summary.String
		note.Remark = remark.String
		note.Color = color.String
		if noteType.Valid {
			note.NoteType = int(noteType.Int64)
		}

		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notes, nil
}

// Note type codes used by the backup database.
const (
	noteTypeHighlight = 0
	noteTypeNote      = 1
	noteTypeBookmark  = 2
)

// ToBundles groups backup notes by book and converts each group into a
// bundle ready for store ingestion. Group order follows the first
// appearance of each book in the row order.
func ToBundles(notes []*BackupNote) []entities.BookBundle {
	grouped := make(map[string][]*BackupNote)
	var order []string
	for _, note := range notes {
		if _, seen := grouped[note.BookTitle]; !seen {
			order = append(order, note.BookTitle)
		}
		grouped[note.BookTitle] = append(grouped[note.BookTitle], note)
	}

	bundles := make([]entities.BookBundle, 0, len(order))
	for _, title := range order {
		group := grouped[title]

		bundle := entities.NewEmptyBundle()
		if title != "" {
			bundle.Metadata.Title = title
		}
		bundle.Metadata.Author = group[0].Author

		for _, note := range group {
			bundle.Annotations = append(bundle.Annotations, toAnnotation(note))
		}
		bundle.Recount()
		bundles = append(bundles, bundle)
	}
	return bundles
}

func toAnnotation(note *BackupNote) *entities.Annotation {
	ann := &entities.Annotation{
		ID:         "backup-" + strconv.FormatInt(note.ID, 10),
		BookAuthor: note.Author,
		Kind:       kindForType(note.NoteType),
		Content:    note.Summary,
		Chapter:    note.Chapter,
		CreatedAt:  time.UnixMilli(note.TimeMs),
		Color:      note.Color,
		Source:     entities.SourceIReader,
	}
	// A row carrying both a highlight and a remark keeps the highlight
	// text as content; the remark becomes the content only for pure
	// note rows.
	if ann.Kind == entities.KindNote && note.Remark != "" {
		ann.Content = note.Remark
	}
	return ann
}

func kindForType(noteType int) entities.Kind {
	switch noteType {
	case noteTypeNote:
		return entities.KindNote
	case noteTypeBookmark:
		return entities.KindBookmark
	default:
		return entities.KindHighlight
	}
}
