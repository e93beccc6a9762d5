package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/marginalia/internal/entities"
)

func TestRegistry_RegistrationOrder(t *testing.T) {
	registry := NewDefaultRegistry()
	assert.Equal(t, []string{"weread", "ireader"}, registry.Names())
}

func TestRegistry_ByName(t *testing.T) {
	registry := NewDefaultRegistry()

	p, ok := registry.ByName("ireader")
	require.True(t, ok)
	assert.Equal(t, "ireader", p.Name())

	_, ok = registry.ByName("kindle")
	assert.False(t, ok)
}

func TestRegistry_DetectFirstMatchWins(t *testing.T) {
	registry := NewDefaultRegistry()

	// Both parsers accept valid JSON; registration order decides.
	p, ok := registry.Detect(`{"bookTitle":"T"}`)
	require.True(t, ok)
	assert.Equal(t, "weread", p.Name())

	p, ok = registry.Detect("<note><content>c</content></note>")
	require.True(t, ok)
	assert.Equal(t, "ireader", p.Name())

	_, ok = registry.Detect("plain prose")
	assert.False(t, ok)
}

func TestRegistry_ByExtension(t *testing.T) {
	registry := NewDefaultRegistry()

	// Unambiguous extensions resolve to a parser.
	p, ok := registry.ByExtension(".csv")
	require.True(t, ok)
	assert.Equal(t, "weread", p.Name())

	p, ok = registry.ByExtension(".irb")
	require.True(t, ok)
	assert.Equal(t, "ireader", p.Name())

	// Extensions claimed by both parsers stay ambiguous.
	_, ok = registry.ByExtension(".json")
	assert.False(t, ok)
	_, ok = registry.ByExtension(".txt")
	assert.False(t, ok)

	_, ok = registry.ByExtension(".pdf")
	assert.False(t, ok)
}

func TestRegistry_RegisterIgnoresDuplicates(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewWeReadParser())
	registry.Register(NewWeReadParser())
	assert.Equal(t, []string{"weread"}, registry.Names())
}

func TestMapKind(t *testing.T) {
	tests := []struct {
		raw      string
		expected entities.Kind
	}{
		{"highlight", entities.KindHighlight},
		{"Note", entities.KindNote},
		{"想法", entities.KindNote},
		{"笔记", entities.KindNote},
		{"bookmark", entities.KindBookmark},
		{"书签", entities.KindBookmark},
		{"", entities.KindHighlight},
		{"unknown-type", entities.KindHighlight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, mapKind(tt.raw), "raw: %q", tt.raw)
	}
}

func TestTimestampOrNow(t *testing.T) {
	// Epoch seconds
	got := timestampOrNow(1705320000, "")
	assert.Equal(t, int64(1705320000), got.Unix())

	// Epoch milliseconds
	got = timestampOrNow(1705320000000, "")
	assert.Equal(t, int64(1705320000), got.Unix())

	// Textual timestamp
	got = timestampOrNow(0, "2024-01-15 12:00:00")
	assert.Equal(t, 2024, got.Year())

	// Unparseable falls back to roughly now
	got = timestampOrNow(0, "not a date")
	assert.WithinDuration(t, time.Now(), got, time.Minute)
}

func TestSynthesizedIDsDoNotCollideWithinParse(t *testing.T) {
	parser := NewWeReadParser()
	bundle := parser.Parse(`{"bookTitle":"T","notes":[{"content":"a"},{"content":"b"},{"content":"c"}]}`)

	seen := make(map[string]bool)
	for _, ann := range bundle.Annotations {
		assert.False(t, seen[ann.ID], "duplicate id %s", ann.ID)
		seen[ann.ID] = true
	}
}
