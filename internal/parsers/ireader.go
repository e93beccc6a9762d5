package parsers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mrlokans/marginalia/internal/entities"
	"github.com/mrlokans/marginalia/internal/utils"
)

const ireaderParserName = "ireader"

// DefaultIReaderMinBareLine is the free-text bare-line threshold for
// iReader exports. Deliberately stricter than the WeRead threshold: the
// iReader export interleaves more label noise between records.
const DefaultIReaderMinBareLine = 12

// IReaderParser decodes iReader (掌阅) exports: a JSON document, the
// tag-delimited backup format, or free text with 高亮/笔记/书签 markers.
type IReaderParser struct {
	// MinBareLineLen is the free-text heuristic threshold, independent
	// from the WeRead one.
	MinBareLineLen int
}

func NewIReaderParser() *IReaderParser {
	return &IReaderParser{MinBareLineLen: DefaultIReaderMinBareLine}
}

func (p *IReaderParser) Name() string { return ireaderParserName }

func (p *IReaderParser) SupportedExtensions() []string {
	return []string{".json", ".irb", ".txt"}
}

var (
	// The backup format is tag-delimited but not well-formed XML: content
	// is written unescaped, so blocks are located with pattern matching
	// rather than an XML decoder.
	ireaderNotePattern    = regexp.MustCompile(`(?s)<note>(.*?)</note>`)
	ireaderTitlePattern   = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	ireaderAuthorPattern  = regexp.MustCompile(`(?s)<author>(.*?)</author>`)
	ireaderContentPattern = regexp.MustCompile(`(?s)<(?:content|text)>(.*?)</(?:content|text)>`)
	ireaderKindPattern    = regexp.MustCompile(`(?s)<(?:kind|type)>(.*?)</(?:kind|type)>`)
	ireaderChapterPattern = regexp.MustCompile(`(?s)<chapter>(.*?)</chapter>`)
	ireaderTimePattern    = regexp.MustCompile(`(?s)<time>(.*?)</time>`)
	ireaderPagePattern    = regexp.MustCompile(`(?s)<page>(.*?)</page>`)
	ireaderColorPattern   = regexp.MustCompile(`(?s)<color>(.*?)</color>`)

	// Chapter headings like 第3章, 第十二节, 第一回
	ireaderChapterHeading = regexp.MustCompile(`^第[0-9〇零一二三四五六七八九十百千]+[章节回卷]`)

	ireaderTitlePrefixes  = []string{"书名：", "书名:"}
	ireaderAuthorPrefixes = []string{"作者：", "作者:"}
)

var ireaderMarkers = []marker{
	{"高亮", entities.KindHighlight},
	{"笔记", entities.KindNote},
	{"书签", entities.KindBookmark},
}

func (p *IReaderParser) Detect(blob string) bool {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "iReader") || strings.Contains(trimmed, "掌阅") {
		return true
	}
	if strings.Contains(trimmed, "<note>") {
		return true
	}
	for _, m := range ireaderMarkers {
		if strings.Contains(trimmed, m.word+"：") || strings.Contains(trimmed, m.word+":") {
			return true
		}
	}
	if looksLikeJSON(trimmed) {
		return json.Valid([]byte(trimmed))
	}
	firstLine, _, _ := strings.Cut(trimmed, "\n")
	if _, ok := cutAnyPrefix(strings.TrimSpace(firstLine), ireaderTitlePrefixes); ok {
		return true
	}
	return false
}

func (p *IReaderParser) Parse(blob string) entities.BookBundle {
	trimmed := strings.TrimSpace(blob)
	switch {
	case trimmed == "":
		return entities.NewEmptyBundle()
	case strings.HasPrefix(trimmed, "<"):
		return p.parseTags(trimmed)
	case looksLikeJSON(trimmed):
		return p.parseJSON(trimmed)
	default:
		return p.parseText(blob)
	}
}

// --- JSON sub-format ---

type ireaderJSONNote struct {
	Text        string `json:"text"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	Type        string `json:"category"`
	Kind        string `json:"type"`
	Chapter     string `json:"chapter"`
	ChapterName string `json:"chapterName"`
	Page        int    `json:"page"`
	Epoch       int64  `json:"time"`
	Created     string `json:"createdAt"`
	Color       string `json:"color"`
}

type ireaderJSONExport struct {
	Book       string            `json:"book"`
	BookTitle  string            `json:"bookTitle"`
	Title      string            `json:"title"`
	Author     string            `json:"author"`
	BookAuthor string            `json:"bookAuthor"`
	Notes      []ireaderJSONNote `json:"notes"`
	Items      []ireaderJSONNote `json:"items"`
}

func (p *IReaderParser) parseJSON(blob string) entities.BookBundle {
	var export ireaderJSONExport

	if strings.HasPrefix(blob, "[") {
		if err := json.Unmarshal([]byte(blob), &export.Notes); err != nil {
			return entities.NewEmptyBundle()
		}
	} else if err := json.Unmarshal([]byte(blob), &export); err != nil {
		return entities.NewEmptyBundle()
	}

	title := firstNonEmpty(export.Book, export.BookTitle, export.Title)
	if title == "" {
		title = entities.UnknownBookTitle
	}
	author := firstNonEmpty(export.Author, export.BookAuthor)

	notes := export.Notes
	if len(notes) == 0 {
		notes = export.Items
	}

	bundle := entities.BookBundle{
		Metadata:    entities.BookMetadata{Title: title, Author: author},
		Annotations: []*entities.Annotation{},
	}

	for i, note := range notes {
		content := firstNonEmpty(note.Text, note.Content, note.Summary)
		if content == "" {
			continue
		}

		position := i
		var location string
		if note.Page > 0 {
			position = note.Page
			location = fmt.Sprintf("page %d", note.Page)
		}

		bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
			ID:            synthesizeID(ireaderParserName, i),
			BookTitle:     title,
			BookAuthor:    author,
			Kind:          mapKind(firstNonEmpty(note.Type, note.Kind)),
			Content:       content,
			Position:      position,
			LocationLabel: location,
			Chapter:       firstNonEmpty(note.Chapter, note.ChapterName),
			CreatedAt:     timestampOrNow(note.Epoch, note.Created),
			Color:         utils.NormalizeColor(note.Color),
			Source:        entities.SourceIReader,
		})
	}

	bundle.Recount()
	return bundle
}

// --- Tag-delimited sub-format ---

func (p *IReaderParser) parseTags(blob string) entities.BookBundle {
	title := tagValue(ireaderTitlePattern, blob)
	blocks := ireaderNotePattern.FindAllStringSubmatch(blob, -1)
	if title == "" && len(blocks) == 0 {
		return entities.NewEmptyBundle()
	}
	if title == "" {
		title = entities.UnknownBookTitle
	}
	author := tagValue(ireaderAuthorPattern, blob)

	bundle := entities.BookBundle{
		Metadata:    entities.BookMetadata{Title: title, Author: author},
		Annotations: []*entities.Annotation{},
	}

	for i, block := range blocks {
		inner := block[1]
		content := tagValue(ireaderContentPattern, inner)
		if content == "" {
			continue
		}

		position := i
		var location string
		if page := tagValue(ireaderPagePattern, inner); page != "" {
			location = "page " + page
			if n, err := strconv.Atoi(page); err == nil {
				position = n
			}
		}

		var epoch int64
		rawTime := tagValue(ireaderTimePattern, inner)
		if n, err := strconv.ParseInt(rawTime, 10, 64); err == nil {
			epoch = n
			rawTime = ""
		}

		bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
			ID:            synthesizeID(ireaderParserName, i),
			BookTitle:     title,
			BookAuthor:    author,
			Kind:          mapKind(tagValue(ireaderKindPattern, inner)),
			Content:       content,
			Position:      position,
			LocationLabel: location,
			Chapter:       tagValue(ireaderChapterPattern, inner),
			CreatedAt:     timestampOrNow(epoch, rawTime),
			Color:         utils.NormalizeColor(tagValue(ireaderColorPattern, inner)),
			Source:        entities.SourceIReader,
		})
	}

	bundle.Recount()
	return bundle
}

func tagValue(pattern *regexp.Regexp, s string) string {
	if m := pattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// --- Free-text sub-format ---

func (p *IReaderParser) parseText(blob string) entities.BookBundle {
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

		if v, ok := cutAnyPrefix(line, ireaderTitlePrefixes); ok {
			if bundle.Metadata.Title == "" {
				bundle.Metadata.Title = v
			}
			continue
		}
		if v, ok := cutAnyPrefix(line, ireaderAuthorPrefixes); ok {
			if bundle.Metadata.Author == "" {
				bundle.Metadata.Author = v
			}
			continue
		}

		if ireaderChapterHeading.MatchString(line) {
			state.chapter = line
			state.hasPending = false
			continue
		}

		if kind, rest, ok := matchMarker(line, ireaderMarkers); ok {
			if rest != "" {
				p.appendText(&bundle, &state, kind, rest)
			} else {
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

func (p *IReaderParser) appendText(bundle *entities.BookBundle, state *scanState, kind entities.Kind, content string) {
	bundle.Annotations = append(bundle.Annotations, &entities.Annotation{
		ID:        synthesizeID(ireaderParserName, state.position),
		Kind:      kind,
		Content:   content,
		Position:  state.position,
		Chapter:   state.chapter,
		CreatedAt: time.Now(),
		Source:    entities.SourceIReader,
	})
	state.position++
}

// Compile-time interface check
var _ Parser = (*IReaderParser)(nil)
