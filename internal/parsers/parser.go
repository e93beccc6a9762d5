package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/marginalia/internal/entities"
)

// Parser decodes one source's export conventions into a BookBundle.
//
// Parse never fails: malformed input that Detect nonetheless accepted
// yields an empty bundle with the placeholder title. Callers must treat
// absence of data as a valid, silent outcome.
type Parser interface {
	Name() string
	SupportedExtensions() []string
	Detect(blob string) bool
	Parse(blob string) entities.BookBundle
}

// Registry holds the known parsers in registration order. Detection
// probes parsers in that order and the first match wins, so the more
// specific parser should be registered first.
type Registry struct {
	order  []Parser
	byName map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Parser)}
}

// NewDefaultRegistry returns a registry with all built-in parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewWeReadParser())
	r.Register(NewIReaderParser())
	return r
}

func (r *Registry) Register(p Parser) {
	if _, exists := r.byName[p.Name()]; exists {
		return
	}
	r.order = append(r.order, p)
	r.byName[p.Name()] = p
}

// ByName looks up a parser by its routing name.
func (r *Registry) ByName(name string) (Parser, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Detect returns the first registered parser whose Detect accepts the blob.
func (r *Registry) Detect(blob string) (Parser, bool) {
	for _, p := range r.order {
		if p.Detect(blob) {
			return p, true
		}
	}
	return nil, false
}

// ByExtension returns the parser claiming the extension, but only when
// exactly one does; shared extensions like .json and .txt are ambiguous
// and callers should fall back to content detection.
func (r *Registry) ByExtension(ext string) (Parser, bool) {
	ext = strings.ToLower(ext)
	var found Parser
	for _, p := range r.order {
		for _, candidate := range p.SupportedExtensions() {
			if candidate != ext {
				continue
			}
			if found != nil {
				return nil, false
			}
			found = p
		}
	}
	return found, found != nil
}

// Names returns parser names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name())
	}
	return names
}

// --- Shared parsing helpers ---

// synthesizeID builds a per-annotation ID from the source tag, the record
// index and the current time. Two parses of the same input will not collide
// by coincidence, but IDs are not deterministic across runs; the store
// resolves any remaining collisions at ingestion.
func synthesizeID(source string, index int) string {
	return fmt.Sprintf("%s-%d-%d", source, index, time.Now().UnixNano())
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// mapKind normalizes a source-specific type label to a semantic kind.
// Unknown labels default to highlight, the most common record type.
func mapKind(raw string) entities.Kind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "note", "thought", "comment", "想法", "笔记", "批注":
		return entities.KindNote
	case "bookmark", "书签":
		return entities.KindBookmark
	default:
		return entities.KindHighlight
	}
}

// marker pairs a free-text marker word with the kind of record it opens.
type marker struct {
	word string
	kind entities.Kind
}

// matchMarker checks whether the line starts with one of the marker words
// followed by a full-width or ASCII colon. It returns the kind and the
// inline remainder of the line.
func matchMarker(line string, markers []marker) (entities.Kind, string, bool) {
	for _, m := range markers {
		for _, sep := range []string{"：", ":"} {
			if rest, ok := strings.CutPrefix(line, m.word+sep); ok {
				return m.kind, strings.TrimSpace(rest), true
			}
		}
	}
	return entities.KindHighlight, "", false
}

func cutAnyPrefix(line string, prefixes []string) (string, bool) {
	for _, prefix := range prefixes {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// Timestamp formats observed across the export formats.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04",
}

// parseTimestamp attempts the known timestamp formats; the zero time and
// false are returned when none match.
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// timestampOrNow resolves a record timestamp from an epoch value
// (seconds or milliseconds) or a textual timestamp, falling back to now.
func timestampOrNow(epoch int64, raw string) time.Time {
	switch {
	case epoch > 1e12: // milliseconds
		return time.UnixMilli(epoch)
	case epoch > 0:
		return time.Unix(epoch, 0)
	}
	if t, ok := parseTimestamp(raw); ok {
		return t
	}
	return time.Now()
}
