package entities

import "time"

// Kind is the semantic type of an annotation, independent of the
// export format it was parsed from.
type Kind string

const (
	KindHighlight Kind = "highlight"
	KindNote      Kind = "note"
	KindBookmark  Kind = "bookmark"
)

// Source identifies where an annotation originally came from.
type Source string

const (
	SourceIReader Source = "ireader" // proprietary e-reader export
	SourceWeRead  Source = "weread"  // social reading app export
	SourceManual  Source = "manual"
	SourceOCR     Source = "ocr"
)

// UnknownBookTitle is the placeholder title used when a parser cannot
// extract any book metadata from its input.
const UnknownBookTitle = "Unknown Book"

// Annotation is a single highlight, note or bookmark.
//
// IDs produced by parsers are only unique within one parse; the store
// resolves collisions before indexing, so an ID is globally unique only
// after ingestion.
type Annotation struct {
	ID            string     `json:"id"`
	BookTitle     string     `json:"book_title"`
	BookAuthor    string     `json:"book_author,omitempty"`
	Kind          Kind       `json:"kind"`
	Content       string     `json:"content"`
	Position      int        `json:"position,omitempty"`
	LocationLabel string     `json:"location_label,omitempty"`
	Chapter       string     `json:"chapter,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Color         string     `json:"color,omitempty"`
	Source        Source     `json:"source"`
}

// Clone returns a deep copy detached from the original: mutating the
// copy's Tags or UpdatedAt does not touch the source annotation.
func (a *Annotation) Clone() *Annotation {
	clone := *a
	if a.UpdatedAt != nil {
		updatedAt := *a.UpdatedAt
		clone.UpdatedAt = &updatedAt
	}
	if a.Tags != nil {
		clone.Tags = append([]string(nil), a.Tags...)
	}
	return &clone
}

// BookMetadata describes the book a bundle of annotations belongs to.
// TotalNotes is maintained by the store and always equals the number of
// annotations in the bundle after any mutation.
type BookMetadata struct {
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	TotalNotes   int        `json:"total_notes"`
	LastSyncDate *time.Time `json:"last_sync_date,omitempty"`
}

// BookBundle is the unit produced by a single parse and the unit of
// persistence: one JSON document per bundle.
type BookBundle struct {
	Metadata    BookMetadata  `json:"metadata"`
	Annotations []*Annotation `json:"annotations"`
}

// NewEmptyBundle returns a bundle with the placeholder title and no
// annotations. Parsers return this for malformed or empty input.
func NewEmptyBundle() BookBundle {
	return BookBundle{
		Metadata:    BookMetadata{Title: UnknownBookTitle},
		Annotations: []*Annotation{},
	}
}

// Clone deep-copies the bundle and every annotation in it.
func (b *BookBundle) Clone() *BookBundle {
	clone := &BookBundle{
		Metadata:    b.Metadata,
		Annotations: make([]*Annotation, 0, len(b.Annotations)),
	}
	if b.Metadata.LastSyncDate != nil {
		lastSync := *b.Metadata.LastSyncDate
		clone.Metadata.LastSyncDate = &lastSync
	}
	for _, ann := range b.Annotations {
		clone.Annotations = append(clone.Annotations, ann.Clone())
	}
	return clone
}

// Recount sets TotalNotes to the actual annotation count.
func (b *BookBundle) Recount() {
	b.Metadata.TotalNotes = len(b.Annotations)
}
