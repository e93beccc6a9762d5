package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/exporters"
	"github.com/mrlokans/marginalia/internal/parsers"
	"github.com/mrlokans/marginalia/internal/storage"
	"github.com/mrlokans/marginalia/internal/utils"
)

var (
	// ErrNoParser is returned when neither a format hint nor detection
	// identifies a parser. This is the one import failure that is not
	// silent: it means "I don't know this format", not malformed content
	// within a recognized format.
	ErrNoParser = errors.New("no parser matched the input")

	ErrUnknownBook     = errors.New("unknown book")
	ErrUnknownRenderer = errors.New("unknown renderer")
	ErrNoStorage       = errors.New("bundle storage is not configured")
)

// Options configures a Manager. Nil registries fall back to the
// defaults; a nil Bundles store disables persistence.
type Options struct {
	Parsers   *parsers.Registry
	Renderers *exporters.Registry
	Bundles   *storage.BundleStore
	ExportDir string
}

// Manager owns the two annotation indexes: the book index (title to
// bundle) and the flat index (annotation ID to annotation). Both maps
// hold pointers to the same annotation values, so an update through one
// index is visible through the other.
//
// One store-wide mutex guards every operation touching the indexes; the
// data volumes involved do not warrant finer-grained locking. Lookups
// return deep copies, never the indexed values themselves, so callers
// can read and marshal results without holding any lock.
type Manager struct {
	mu        sync.RWMutex
	parsers   *parsers.Registry
	renderers *exporters.Registry
	bundles   *storage.BundleStore
	exportDir string

	books       map[string]*entities.BookBundle
	bookOrder   []string
	annotations map[string]*entities.Annotation

	listenersMu sync.RWMutex
	listeners   []Listener
}

func NewManager(opts Options) *Manager {
	if opts.Parsers == nil {
		opts.Parsers = parsers.NewDefaultRegistry()
	}
	if opts.Renderers == nil {
		opts.Renderers = exporters.NewDefaultRegistry()
	}
	return &Manager{
		parsers:     opts.Parsers,
		renderers:   opts.Renderers,
		bundles:     opts.Bundles,
		exportDir:   opts.ExportDir,
		books:       make(map[string]*entities.BookBundle),
		annotations: make(map[string]*entities.Annotation),
	}
}

// Subscribe registers a listener for imported/exported/error events.
func (m *Manager) Subscribe(listener Listener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) emit(event Event) {
	m.listenersMu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenersMu.RUnlock()

	for _, listener := range listeners {
		listener.Notify(event)
	}
}

// --- Import ---

// ImportFrom selects a parser for the blob (by hint, else by probing
// detectors in registration order), parses it and ingests the resulting
// bundle under collision-free identities.
func (m *Manager) ImportFrom(blob, formatHint string) (*entities.BookBundle, error) {
	parser, err := m.selectParser(blob, formatHint)
	if err != nil {
		m.emit(newEvent(EventError, "", err.Error(), 0))
		return nil, err
	}

	bundle := parser.Parse(blob)
	ingested := m.ingest(&bundle)

	m.emit(newEvent(EventImported, ingested.Metadata.Title,
		fmt.Sprintf("imported via %s", parser.Name()), ingested.Metadata.TotalNotes))
	return ingested, nil
}

// ImportBundle ingests an already-constructed bundle. This is the entry
// point for manual entries and for OCR transcripts handed over by the
// surrounding application.
func (m *Manager) ImportBundle(bundle entities.BookBundle) *entities.BookBundle {
	ingested := m.ingest(&bundle)
	m.emit(newEvent(EventImported, ingested.Metadata.Title, "imported bundle", ingested.Metadata.TotalNotes))
	return ingested
}

// FormatHintForFile maps a filename extension to a parser name when the
// extension is claimed by exactly one parser. Ambiguous or unknown
// extensions yield the empty hint, leaving content detection in charge.
func (m *Manager) FormatHintForFile(filename string) string {
	if parser, ok := m.parsers.ByExtension(filepath.Ext(filename)); ok {
		return parser.Name()
	}
	return ""
}

func (m *Manager) selectParser(blob, formatHint string) (parsers.Parser, error) {
	if formatHint != "" {
		parser, ok := m.parsers.ByName(formatHint)
		if !ok {
			return nil, fmt.Errorf("%w: unknown format hint %q", ErrNoParser, formatHint)
		}
		return parser, nil
	}
	parser, ok := m.parsers.Detect(blob)
	if !ok {
		return nil, ErrNoParser
	}
	return parser, nil
}

func (m *Manager) ingest(bundle *entities.BookBundle) *entities.BookBundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingestLocked(bundle).Clone()
}

// ingestLocked resolves a collision-free title, stamps it onto every
// annotation, resolves collision-free annotation IDs against the flat
// index and inserts into both indexes. Resolved IDs are written back
// into the bundle so the two indexes stay consistent.
func (m *Manager) ingestLocked(bundle *entities.BookBundle) *entities.BookBundle {
	title := strings.TrimSpace(bundle.Metadata.Title)
	if title == "" {
		title = entities.UnknownBookTitle
	}
	title = resolveCollision(title, func(candidate string) bool {
		_, taken := m.books[candidate]
		return taken
	})
	bundle.Metadata.Title = title

	now := time.Now()
	bundle.Metadata.LastSyncDate = &now

	for i, ann := range bundle.Annotations {
		ann.BookTitle = title
		if ann.ID == "" {
			ann.ID = fmt.Sprintf("%s-%d-%d", ann.Source, i, now.UnixNano())
		}
		ann.ID = resolveCollision(ann.ID, func(candidate string) bool {
			_, taken := m.annotations[candidate]
			return taken
		})
		m.annotations[ann.ID] = ann
	}

	bundle.Recount()
	m.books[title] = bundle
	m.bookOrder = append(m.bookOrder, title)
	return bundle
}

// resolveCollision appends numeric suffixes (base, base_1, base_2, ...)
// until the candidate is free. First come, first served.
func resolveCollision(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}

// --- Lookups ---

// ListBooks returns book metadata in import order.
func (m *Manager) ListBooks() []entities.BookMetadata {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make([]entities.BookMetadata, 0, len(m.bookOrder))
	for _, title := range m.bookOrder {
		books = append(books, m.books[title].Metadata)
	}
	return books
}

func (m *Manager) GetBook(title string) (*entities.BookBundle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundle, ok := m.books[title]
	if !ok {
		return nil, false
	}
	return bundle.Clone(), true
}

// ListAllAnnotations returns every annotation in book order, bundle
// order within each book.
func (m *Manager) ListAllAnnotations() []*entities.Annotation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var annotations []*entities.Annotation
	for _, title := range m.bookOrder {
		for _, ann := range m.books[title].Annotations {
			annotations = append(annotations, ann.Clone())
		}
	}
	return annotations
}

func (m *Manager) GetAnnotationsForBook(title string) ([]*entities.Annotation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bundle, ok := m.books[title]
	if !ok {
		return nil, false
	}
	annotations := make([]*entities.Annotation, 0, len(bundle.Annotations))
	for _, ann := range bundle.Annotations {
		annotations = append(annotations, ann.Clone())
	}
	return annotations, true
}

func (m *Manager) GetAnnotationByID(id string) (*entities.Annotation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ann, ok := m.annotations[id]
	if !ok {
		return nil, false
	}
	return ann.Clone(), true
}

// --- Mutations ---

// AnnotationUpdate carries the mutable fields of an annotation; nil
// fields are left unchanged.
type AnnotationUpdate struct {
	Content       *string   `json:"content,omitempty"`
	Chapter       *string   `json:"chapter,omitempty"`
	LocationLabel *string   `json:"location_label,omitempty"`
	Color         *string   `json:"color,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
}

// UpdateAnnotation merges the update into the annotation and stamps
// UpdatedAt. Returns false if the ID is unknown.
func (m *Manager) UpdateAnnotation(id string, update AnnotationUpdate) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ann, ok := m.annotations[id]
	if !ok {
		return false
	}

	if update.Content != nil {
		ann.Content = *update.Content
	}
	if update.Chapter != nil {
		ann.Chapter = *update.Chapter
	}
	if update.LocationLabel != nil {
		ann.LocationLabel = *update.LocationLabel
	}
	if update.Color != nil {
		ann.Color = *update.Color
	}
	if update.Tags != nil {
		ann.Tags = *update.Tags
	}

	now := time.Now()
	ann.UpdatedAt = &now
	return true
}

// DeleteAnnotation removes an annotation from the flat index and from
// its owning bundle, and recomputes the bundle's note count. Returns
// false if the ID is unknown.
func (m *Manager) DeleteAnnotation(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ann, ok := m.annotations[id]
	if !ok {
		return false
	}
	delete(m.annotations, id)

	if bundle, ok := m.books[ann.BookTitle]; ok {
		for i, candidate := range bundle.Annotations {
			if candidate.ID == id {
				bundle.Annotations = append(bundle.Annotations[:i], bundle.Annotations[i+1:]...)
				break
			}
		}
		bundle.Recount()
	}
	return true
}

// DeleteBook removes a bundle and cascades to every annotation it owns.
// Returns false if the title is unknown.
func (m *Manager) DeleteBook(title string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bundle, ok := m.books[title]
	if !ok {
		return false
	}

	for _, ann := range bundle.Annotations {
		delete(m.annotations, ann.ID)
	}
	delete(m.books, title)
	for i, candidate := range m.bookOrder {
		if candidate == title {
			m.bookOrder = append(m.bookOrder[:i], m.bookOrder[i+1:]...)
			break
		}
	}

	if m.bundles != nil {
		if err := m.bundles.Remove(title); err != nil {
			log.Printf("store: failed to remove persisted bundle for %q: %v", title, err)
		}
	}
	return true
}

// --- Search and statistics ---

// Search matches the query case-insensitively against content, book
// title, chapter and tags. All matches are returned, unranked, in book
// order.
func (m *Manager) Search(query string) []*entities.Annotation {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*entities.Annotation
	for _, title := range m.bookOrder {
		for _, ann := range m.books[title].Annotations {
			if annotationMatches(ann, needle) {
				matches = append(matches, ann.Clone())
			}
		}
	}
	return matches
}

func annotationMatches(ann *entities.Annotation, needle string) bool {
	if strings.Contains(strings.ToLower(ann.Content), needle) ||
		strings.Contains(strings.ToLower(ann.BookTitle), needle) ||
		strings.Contains(strings.ToLower(ann.Chapter), needle) {
		return true
	}
	for _, tag := range ann.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Statistics summarizes the store contents.
type Statistics struct {
	TotalBooks       int                     `json:"total_books"`
	TotalAnnotations int                     `json:"total_annotations"`
	BySource         map[entities.Source]int `json:"by_source"`
	ByKind           map[entities.Kind]int   `json:"by_kind"`
}

// Statistics derives the counts in a single pass over the flat index.
func (m *Manager) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Statistics{
		TotalBooks:       len(m.books),
		TotalAnnotations: len(m.annotations),
		BySource:         make(map[entities.Source]int),
		ByKind:           make(map[entities.Kind]int),
	}
	for _, ann := range m.annotations {
		stats.BySource[ann.Source]++
		stats.ByKind[ann.Kind]++
	}
	return stats
}

// --- Export ---

// ExportBook renders a bundle with the named renderer and writes the
// result to the export directory under a sanitized, timestamped
// filename. Returns the written path.
func (m *Manager) ExportBook(title, rendererName string, opts exporters.Options) (string, error) {
	renderer, ok := m.renderers.ByName(rendererName)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownRenderer, rendererName)
		m.emit(newEvent(EventError, title, err.Error(), 0))
		return "", err
	}

	m.mu.RLock()
	bundle, ok := m.books[title]
	if !ok {
		m.mu.RUnlock()
		err := fmt.Errorf("%w: %s", ErrUnknownBook, title)
		m.emit(newEvent(EventError, title, err.Error(), 0))
		return "", err
	}
	text := renderer.RenderBundle(bundle, opts)
	count := bundle.Metadata.TotalNotes
	m.mu.RUnlock()

	if err := os.MkdirAll(m.exportDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s%s",
		utils.SanitizeFilename(title), time.Now().Format("20060102_150405"), renderer.Extension())
	path := filepath.Join(m.exportDir, filename)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		m.emit(newEvent(EventError, title, err.Error(), 0))
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	m.emit(newEvent(EventExported, title, path, count))
	return path, nil
}

// --- Persistence ---

// Persist writes a single bundle to the bundle store.
func (m *Manager) Persist(title string) error {
	if m.bundles == nil {
		return ErrNoStorage
	}

	m.mu.RLock()
	bundle, ok := m.books[title]
	if ok {
		bundle = bundle.Clone()
	}
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBook, title)
	}

	_, err := m.bundles.Save(bundle)
	return err
}

// PersistAll writes every bundle, best-effort. It returns the number of
// bundles saved and the per-bundle failures.
func (m *Manager) PersistAll() (int, []error) {
	if m.bundles == nil {
		return 0, []error{ErrNoStorage}
	}

	m.mu.RLock()
	bundles := make([]*entities.BookBundle, 0, len(m.bookOrder))
	for _, title := range m.bookOrder {
		bundles = append(bundles, m.books[title].Clone())
	}
	m.mu.RUnlock()

	saved := 0
	var errs []error
	for _, bundle := range bundles {
		if _, err := m.bundles.Save(bundle); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	return saved, errs
}

// LoadAll reads every persisted bundle and re-runs the ingestion
// routine per file, so collision rules apply uniformly whether data
// arrives via import or via reload. A file that fails to load does not
// abort the rest.
func (m *Manager) LoadAll() (int, []error) {
	if m.bundles == nil {
		return 0, []error{ErrNoStorage}
	}

	loaded, errs := m.bundles.LoadAll()
	for _, bundle := range loaded {
		m.ingest(bundle)
	}
	return len(loaded), errs
}
