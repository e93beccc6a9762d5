package exporters

import (
	"sort"

	"github.com/mrlokans/marginalia/internal/entities"
)

// SortBy selects the ordering of rendered annotations.
type SortBy string

const (
	SortByPosition SortBy = "position"
	SortByDate     SortBy = "date"
	SortByChapter  SortBy = "chapter"
)

// Options controls rendering output.
type Options struct {
	IncludeMetadata bool
	IncludeLocation bool
	IncludeTags     bool
	GroupByChapter  bool
	SortBy          SortBy
}

// DefaultOptions enables the metadata header, location fields and tags,
// with no chapter grouping and position ordering.
func DefaultOptions() Options {
	return Options{
		IncludeMetadata: true,
		IncludeLocation: true,
		IncludeTags:     true,
		SortBy:          SortByPosition,
	}
}

// Renderer turns annotations into formatted text. Rendering never
// fails: zero-annotation input produces a valid header-only document.
type Renderer interface {
	Name() string
	Extension() string
	Render(annotations []*entities.Annotation, opts Options) string
	RenderBundle(bundle *entities.BookBundle, opts Options) string
}

// Registry holds the known renderers keyed by name.
type Registry struct {
	order  []Renderer
	byName map[string]Renderer
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Renderer)}
}

// NewDefaultRegistry returns a registry with all built-in renderers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewMarkdownRenderer())
	return r
}

func (r *Registry) Register(renderer Renderer) {
	if _, exists := r.byName[renderer.Name()]; exists {
		return
	}
	r.order = append(r.order, renderer)
	r.byName[renderer.Name()] = renderer
}

func (r *Registry) ByName(name string) (Renderer, bool) {
	renderer, ok := r.byName[name]
	return renderer, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, renderer := range r.order {
		names = append(names, renderer.Name())
	}
	return names
}

// sortAnnotations returns a sorted copy; the input slice is never
// reordered in place since it may belong to a live bundle.
func sortAnnotations(annotations []*entities.Annotation, by SortBy) []*entities.Annotation {
	sorted := make([]*entities.Annotation, len(annotations))
	copy(sorted, annotations)

	switch by {
	case SortByDate:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	case SortByChapter:
		// Absent chapters compare as empty strings and sort first.
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Chapter < sorted[j].Chapter
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Position < sorted[j].Position
		})
	}

	return sorted
}
