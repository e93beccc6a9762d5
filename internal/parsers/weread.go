package parsers

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/utils"
)

const wereadParserName = "weread"

// DefaultWeReadMinBareLine is the minimum rune count for a bare free-text
// line to be ingested as highlight content. Kept separate from the iReader
// threshold: the two sources' exports differ and the heuristics must not
// be unified.
const DefaultWeReadMinBareLine = 6

// WeReadParser decodes WeRead (微信读书) exports. The app exports the same
// notebook in three shapes: a JSON document, a CSV table, and shared
// free text with 划线/想法/书签 markers.
type WeReadParser struct {
	// MinBareLineLen is the free-text heuristic threshold: a line without
	// any marker is treated as highlight content only if it has at least
	// this many runes.
	MinBareLineLen int
}

func NewWeReadParser() *WeReadParser {
	return &WeReadParser{MinBareLineLen: DefaultWeReadMinBareLine}
}

func (p *WeReadParser) Name() string { return wereadParserName }

func (p *WeReadParser) SupportedExtensions() []string {
	return []string{".json", ".csv", ".txt"}
}

var (
	// Shared-text header like 《深入理解计算机系统》
	wereadTitlePattern = regexp.MustCompile(`^《(.+)》$`)

	wereadChapterPrefixes = []string{"章节：", "章节:"}
	wereadAuthorPrefixes  = []string{"作者：", "作者:"}
	wereadTitlePrefixes   = []string{"书名：", "书名:"}
)

// wereadMarkers maps free-text marker words to record kinds, checked in
// order so tests stay deterministic.
var wereadMarkers = []marker{
	{"划线", entities.KindHighlight},
	{"想法", entities.KindNote},
	{"书签", entities.KindBookmark},
}

// Detect sniffs for WeRead product markers or a structure one of the
// sub-formats can decode. False positives are tolerated; the registry
// probes parsers in registration order.
func (p *WeReadParser) Detect(blob string) bool {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "微信读书") {
		return true
	}
	for _, m := range wereadMarkers {
		if strings.Contains(trimmed, m.word+"：") || strings.Contains(trimmed, m.word+":") {
			return true
		}
	}
	if looksLikeJSON(trimmed) {
		return json.Valid([]byte(trimmed))
	}
	if looksLikeCSVHeader(trimmed) {
		return true
	}
	firstLine, _, _ := strings.Cut(trimmed, "\n")
	return wereadTitlePattern.MatchString(strings.TrimSpace(firstLine))
}

// Parse dispatches among the JSON, CSV and free-text sub-formats using
// the same structural sniffing Detect uses.
func (p *WeReadParser) Parse(blob string) entities.BookBundle {
	trimmed := strings.TrimSpace(blob)
	switch {
	case trimmed == "":
		return entities.NewEmptyBundle()
	case looksLikeJSON(trimmed):
		return p.parseJSON(trimmed)
	case looksLikeCSVHeader(trimmed):
		return p.parseCSV(trimmed)
	default:
		return p.parseText(blob)
	}
}

// --- JSON sub-format ---

// Field names vary between export versions, so each logical field reads
// several aliases permissively.
type wereadJSONNote struct {
	Content  string   `json:"content"`
	Text     string   `json:"text"`
	MarkText string   `json:"markText"`
	Type     string   `json:"type"`
	Kind     string   `json:"kind"`
	Chapter  string   `json:"chapter"`
	ChapterT string   `json:"chapterTitle"`
	Range    string   `json:"range"`
	Position *int     `json:"position"`
	Sort     *int     `json:"sort"`
	Created  string   `json:"createdAt"`
	Epoch    int64    `json:"createTime"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
}

type wereadJSONExport struct {
	BookTitle   string           `json:"bookTitle"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	BookAuthor  string           `json:"bookAuthor"`
	Notes       []wereadJSONNote `json:"notes"`
	Annotations []wereadJSONNote `json:"annotations"`
	Highlights  []wereadJSONNote `json:"highlights"`
}

func (p *WeReadParser) parseJSON(blob string) entities.BookBundle {
	var export wereadJSONExport

	if strings.HasPrefix(blob, "[") {
		// Bare note arrays carry no book metadata at all.
		if err := json.Unmarshal([]byte(blob), &export.Notes); err != nil {
			return entities.NewEmptyBundle()
		}
	} else if err := json.Unmarshal([]byte(blob), &export); err != nil {
		return entities.NewEmptyBundle()
	}

	title := firstNonEmpty(export.BookTitle, export.Title)
	if title == "" {
		title = entities.UnknownBookTitle
	}
	author := firstNonEmpty(export.Author, export.BookAuthor)

	notes := export.Notes
	if len(notes) == 0 {
		notes = export.Annotations
	}
	if len(notes) == 0 {
		notes = export.Highlights
	}

	bundle := entities.BookBundle{
		Metadata:    entities.BookMetadata{Title: title, Author: author},
		Annotations: []*entities.Annotation{},
	}

	for i, note := range notes {
		content := firstNonEmpty(note.Content, note.Text, note.MarkText)
		if content == "" {
			continue
		}

		position := i
		if note.Position != nil {
			position = *note.Position
		} else if note.Sort != nil {
			position = *note.Sort
		}

		bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
			ID:            synthesizeID(wereadParserName, i),
			BookTitle:     title,
			BookAuthor:    author,
			Kind:          mapKind(firstNonEmpty(note.Type, note.Kind)),
			Content:       content,
			Position:      position,
			LocationLabel: note.Range,
			Chapter:       firstNonEmpty(note.Chapter, note.ChapterT),
			CreatedAt:     timestampOrNow(note.Epoch, note.Created),
			Tags:          note.Tags,
			Color:         utils.NormalizeColor(note.Color),
			Source:        entities.SourceWeRead,
		})
	}

	bundle.Recount()
	return bundle
}

// --- CSV sub-format ---

// Exports from the Chinese app carry Chinese column headers; English
// headers show up in third-party conversions of the same notebook.
var csvHeaderHints = []string{"content", "text", "highlight", "title", "书名", "内容", "划线"}

func looksLikeCSVHeader(blob string) bool {
	firstLine, _, _ := strings.Cut(blob, "\n")
	if !strings.Contains(firstLine, ",") {
		return false
	}
	lower := strings.ToLower(firstLine)
	for _, hint := range csvHeaderHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func (p *WeReadParser) parseCSV(blob string) entities.BookBundle {
	reader := csv.NewReader(strings.NewReader(blob))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return entities.NewEmptyBundle()
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	bundle := entities.NewEmptyBundle()
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip unreadable rows, keep whatever else decodes.
			continue
		}

		title := csvField(record, index, "book title", "booktitle", "title", "书名")
		author := csvField(record, index, "book author", "bookauthor", "author", "作者")
		content := csvField(record, index, "content", "text", "highlight", "内容", "划线")
		if content == "" {
			continue
		}
		if bundle.Metadata.Title == entities.UnknownBookTitle && title != "" {
			bundle.Metadata.Title = title
			bundle.Metadata.Author = author
		}

		position := row
		location := csvField(record, index, "location", "range", "position", "位置")
		if n, err := strconv.Atoi(location); err == nil {
			position = n
		}

		var tags []string
		if rawTags := csvField(record, index, "tags", "标签"); rawTags != "" {
			for _, tag := range strings.Split(rawTags, "|") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
		}

		bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
			ID:            synthesizeID(wereadParserName, row),
			BookTitle:     bundle.Metadata.Title,
			BookAuthor:    bundle.Metadata.Author,
			Kind:          mapKind(csvField(record, index, "type", "kind", "类型")),
			Content:       content,
			Position:      position,
			LocationLabel: location,
			Chapter:       csvField(record, index, "chapter", "章节"),
			CreatedAt:     timestampOrNow(0, csvField(record, index, "created", "created at", "time", "时间")),
			Tags:          tags,
			Color:         utils.NormalizeColor(csvField(record, index, "color", "颜色")),
			Source:        entities.SourceWeRead,
		})
		row++
	}

	bundle.Recount()
	return bundle
}

func csvField(record []string, index map[string]int, names ...string) string {
	for _, name := range names {
		if i, ok := index[name]; ok && i < len(record) {
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// --- Free-text sub-format ---

// scanState tracks the line scanner through the free-text export:
// metadata lines seed the bundle, chapter lines set the context applied
// to subsequent records, marker lines open a record either inline or on
// the following non-empty line.
type scanState struct {
	chapter     string
	pendingKind entities.Kind
	hasPending  bool
	position    int
}

func (p *WeReadParser) parseText(blob string) entities.BookBundle {
	bundle := entities.NewEmptyBundle()
	bundle.Metadata.Title = ""

	var state scanState
	scanner := bufio.NewScanner(strings.NewReader(blob))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Metadata label lines are always consumed, even when repeated,
		// so they never leak into content.
		if m := wereadTitlePattern.FindStringSubmatch(line); m != nil {
			if bundle.Metadata.Title == "" {
				bundle.Metadata.Title = strings.TrimSpace(m[1])
			}
			continue
		}
		if v, ok := cutAnyPrefix(line, wereadTitlePrefixes); ok {
			if bundle.Metadata.Title == "" {
				bundle.Metadata.Title = v
			}
			continue
		}
		if v, ok := cutAnyPrefix(line, wereadAuthorPrefixes); ok {
			if bundle.Metadata.Author == "" {
				bundle.Metadata.Author = v
			}
			continue
		}

		if _, ok := cutAnyPrefix(line, wereadChapterPrefixes); ok {
			// The full line is kept as the chapter label.
			state.chapter = line
			state.hasPending = false
			continue
		}

		if kind, rest, ok := matchMarker(line, wereadMarkers); ok {
			if rest != "" {
				p.appendText(&bundle, &state, kind, rest)
			} else {
				// Standalone label: the next non-empty line is the content.
				state.pendingKind = kind
				state.hasPending = true
			}
			continue
		}

		if state.hasPending {
			p.appendText(&bundle, &state, state.pendingKind, line)
			state.hasPending = false
			continue
		}

		// A bare line counts as a highlight only when it is long enough
		// to be content rather than a stray label.
		if utf8.RuneCountInString(line) >= p.MinBareLineLen {
			p.appendText(&bundle, &state, entities.KindHighlight, line)
		}
	}

	if bundle.Metadata.Title == "" {
		bundle.Metadata.Title = entities.UnknownBookTitle
	}
	for _, ann := range bundle.Annotations {
		ann.BookTitle = bundle.Metadata.Title
		ann.BookAuthor = bundle.Metadata.Author
	}
	bundle.Recount()
	return bundle
}

func (p *WeReadParser) appendText(bundle *entities.BookBundle, state *scanState, kind entities.Kind, content string) {
	bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
		ID:        synthesizeID(wereadParserName, state.position),
		Kind:      kind,
		Content:   content,
		Position:  state.position,
		Chapter:   state.chapter,
		CreatedAt: time.Now(),
		Source:    entities.SourceWeRead,
	})
	state.position++
}

// Compile-time interface check
var _ Parser = (*WeReadParser)(nil)
