package exporters

import (
	"fmt"
	"strings"

	"github.com/mrlokans/marginalia/internal/entities"
)

// NoChapterLabel groups annotations without a chapter when chapter
// grouping is enabled.
const NoChapterLabel = "No chapter"

const annotationTimeFormat = "2006-01-02 15:04"

// MarkdownRenderer renders bundles and annotation lists as markdown:
// one kind-tagged block per annotation, highlights block-quoted.
type MarkdownRenderer struct{}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

func (r *MarkdownRenderer) Name() string { return "markdown" }

func (r *MarkdownRenderer) Extension() string { return ".md" }

// RenderBundle renders a whole book bundle. The title heading is always
// emitted so the output is a valid document even with zero annotations.
func (r *MarkdownRenderer) RenderBundle(bundle *entities.BookBundle, opts Options) string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "# %s\n\n", bundle.Metadata.Title)

	if opts.IncludeMetadata {
		if bundle.Metadata.Author != "" {
			fmt.Fprintf(&builder, "**Author:** %s\n\n", bundle.Metadata.Author)
		}
		fmt.Fprintf(&builder, "**Annotations:** %d\n\n", bundle.Metadata.TotalNotes)
		if bundle.Metadata.LastSyncDate != nil {
			fmt.Fprintf(&builder, "**Last synced:** %s\n\n", bundle.Metadata.LastSyncDate.Format(annotationTimeFormat))
		}
	}

	r.renderAnnotations(&builder, bundle.Annotations, opts)
	return builder.String()
}

// Render renders a flat annotation list under a generic heading.
func (r *MarkdownRenderer) Render(annotations []*entities.Annotation, opts Options) string {
	var builder strings.Builder

	builder.WriteString("# Annotations\n\n")
	if opts.IncludeMetadata {
		fmt.Fprintf(&builder, "**Annotations:** %d\n\n", len(annotations))
	}

	r.renderAnnotations(&builder, annotations, opts)
	return builder.String()
}

func (r *MarkdownRenderer) renderAnnotations(builder *strings.Builder, annotations []*entities.Annotation, opts Options) {
	sorted := sortAnnotations(annotations, opts.SortBy)

	if !opts.GroupByChapter {
		for _, ann := range sorted {
			r.renderAnnotation(builder, ann, opts)
		}
		return
	}

	// Sections come out in first-seen chapter order, not alphabetical;
	// sorting above already reordered the underlying list if requested.
	groups := make(map[string][]*entities.Annotation)
	var order []string
	for _, ann := range sorted {
		label := ann.Chapter
		if label == "" {
			label = NoChapterLabel
		}
		if _, seen := groups[label]; !seen {
			order = append(order, label)
		}
		groups[label] = append(groups[label], ann)
	}

	for _, label := range order {
		fmt.Fprintf(builder, "## %s\n\n", label)
		for _, ann := range groups[label] {
			r.renderAnnotation(builder, ann, opts)
		}
	}
}

func (r *MarkdownRenderer) renderAnnotation(builder *strings.Builder, ann *entities.Annotation, opts Options) {
	fmt.Fprintf(builder, "### %s\n\n", kindHeading(ann.Kind))

	if ann.Kind == entities.KindHighlight {
		fmt.Fprintf(builder, "> %s\n\n", strings.ReplaceAll(ann.Content, "\n", "\n> "))
	} else {
		fmt.Fprintf(builder, "%s\n\n", ann.Content)
	}

	if opts.IncludeLocation {
		if location := locationLine(ann); location != "" {
			fmt.Fprintf(builder, "**Location:** %s\n\n", location)
		}
	}

	if opts.IncludeTags && len(ann.Tags) > 0 {
		fmt.Fprintf(builder, "**Tags:** %s\n\n", strings.Join(ann.Tags, ", "))
	}

	fmt.Fprintf(builder, "*%s*", ann.CreatedAt.Format(annotationTimeFormat))
	if ann.UpdatedAt != nil {
		fmt.Fprintf(builder, " (edited %s)", ann.UpdatedAt.Format(annotationTimeFormat))
	}
	builder.WriteString("\n\n---\n\n")
}

func kindHeading(kind entities.Kind) string {
	switch kind {
	case entities.KindNote:
		return "Note"
	case entities.KindBookmark:
		return "Bookmark"
	default:
		return "Highlight"
	}
}

// locationLine consolidates chapter, source location label and position
// into a single line.
func locationLine(ann *entities.Annotation) string {
	var parts []string
	if ann.Chapter != "" {
		parts = append(parts, ann.Chapter)
	}
	if ann.LocationLabel != "" {
		parts = append(parts, ann.LocationLabel)
	}
	if ann.Position > 0 {
		parts = append(parts, fmt.Sprintf("position %d", ann.Position))
	}
	return strings.Join(parts, " · ")
}

// Compile-time interface check
var _ Renderer = (*MarkdownRenderer)(nil)
