package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/entities"
)

const ireaderTagExport = `<book>
<title>Deep Work</title>
<author>Cal Newport</author>
<note>
<chapter>Rule 1</chapter>
<type>highlight</type>
<content>Focus is the new IQ</content>
<page>42</page>
<time>1705320000</time>
</note>
<note>
<type>note</type>
<text>my own thought & reaction</text>
</note>
</book>`

func TestIReaderParser_ParseTags(t *testing.T) {
	parser := NewIReaderParser()

	bundle := parser.Parse(ireaderTagExport)

	assert.Equal(t, "Deep Work", bundle.Metadata.Title)
	assert.Equal(t, "Cal Newport", bundle.Metadata.Author)
	require.Len(t, bundle.Annotations, 2)
	assert.Equal(t, 2, bundle.Metadata.TotalNotes)

	first := bundle.Annotations[0]
	assert.Equal(t, entities.KindHighlight, first.Kind)
	assert.Equal(t, "Focus is the new IQ", first.Content)
	assert.Equal(t, "Rule 1", first.Chapter)
	assert.Equal(t, "page 42", first.LocationLabel)
	assert.Equal(t, 42, first.Position)
	assert.Equal(t, 2024, first.CreatedAt.Year())
	assert.Equal(t, entities.SourceIReader, first.Source)

	// Unescaped content is tolerated: the format is not real XML.
	second := bundle.Annotations[1]
	assert.Equal(t, entities.KindNote, second.Kind)
	assert.Equal(t, "my own thought & reaction", second.Content)
}

func TestIReaderParser_ParseTagsMalformed(t *testing.T) {
	parser := NewIReaderParser()

	bundle := parser.Parse("<garbage><unclosed>")
	assert.Equal(t, entities.UnknownBookTitle, bundle.Metadata.Title)
	assert.Empty(t, bundle.Annotations)
}

func TestIReaderParser_ParseTagsMissingOptionalFields(t *testing.T) {
	parser := NewIReaderParser()

	bundle := parser.Parse("<note><content>bare minimum</content></note>")
	require.Len(t, bundle.Annotations, 1)
	assert.Equal(t, entities.UnknownBookTitle, bundle.Metadata.Title)
	assert.Equal(t, "bare minimum", bundle.Annotations[0].Content)
	assert.Empty(t, bundle.Annotations[0].Chapter)
	assert.Empty(t, bundle.Annotations[0].LocationLabel)
}

func TestIReaderParser_ParseJSON(t *testing.T) {
	parser := NewIReaderParser()

	blob := `{
		"book": "SICP",
		"author": "Abelson",
		"items": [
			{"text": "programs must be written for people", "category": "highlight", "page": 3},
			{"content": "书签内容占位", "category": "书签"}
		]
	}`
	bundle := parser.Parse(blob)

	assert.Equal(t, "SICP", bundle.Metadata.Title)
	require.Len(t, bundle.Annotations, 2)
	assert.Equal(t, "page 3", bundle.Annotations[0].LocationLabel)
	assert.Equal(t, 3, bundle.Annotations[0].Position)
	assert.Equal(t, entities.KindBookmark, bundle.Annotations[1].Kind)
}

func TestIReaderParser_MalformedJSONYieldsEmptyBundle(t *testing.T) {
	parser := NewIReaderParser()

	for _, blob := range []string{`{"book": `, `{}`, `[]`} {
		bundle := parser.Parse(blob)
		assert.Equal(t, entities.UnknownBookTitle, bundle.Metadata.Title, "input: %s", blob)
		assert.Empty(t, bundle.Annotations, "input: %s", blob)
	}
}

func TestIReaderParser_ParseFreeText(t *testing.T) {
	parser := NewIReaderParser()

	blob := "书名：平凡的世界\n作者：路遥\n\n第一章\n高亮：少安在黄原城揽工\n笔记：\n这段写得真好"
	bundle := parser.Parse(blob)

	assert.Equal(t, "平凡的世界", bundle.Metadata.Title)
	assert.Equal(t, "路遥", bundle.Metadata.Author)
	require.Len(t, bundle.Annotations, 2)

	assert.Equal(t, entities.KindHighlight, bundle.Annotations[0].Kind)
	assert.Equal(t, "少安在黄原城揽工", bundle.Annotations[0].Content)
	assert.Equal(t, "第一章", bundle.Annotations[0].Chapter)

	assert.Equal(t, entities.KindNote, bundle.Annotations[1].Kind)
	assert.Equal(t, "这段写得真好", bundle.Annotations[1].Content)
}

func TestIReaderParser_FreeTextBareLineThreshold(t *testing.T) {
	parser := NewIReaderParser()

	// Stricter threshold than WeRead: eleven runes is still not enough.
	blob := "书名：T\n十一个字符十一个字符十\n这一行字数足够多可以被当作高亮内容收录"
	bundle := parser.Parse(blob)

	require.Len(t, bundle.Annotations, 1)
	assert.Equal(t, "这一行字数足够多可以被当作高亮内容收录", bundle.Annotations[0].Content)
}

func TestIReaderParser_Detect(t *testing.T) {
	parser := NewIReaderParser()

	tests := []struct {
		name     string
		blob     string
		expected bool
	}{
		{"product marker", "exported by iReader", true},
		{"note tag", "<book><note></note></book>", true},
		{"marker word", "高亮：text", true},
		{"title label", "书名：围城\n正文", true},
		{"valid json", `{"book":"T"}`, true},
		{"empty", "", false},
		{"plain prose", "just words", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parser.Detect(tt.blob))
		})
	}
}
