package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain title", "Clean Code", "Clean_Code"},
		{"invalid characters removed", `A/B\C:D*E?F"G<H>I|J`, "ABCDEFGHIJ"},
		{"whitespace collapsed", "Too   many\t spaces\nhere", "Too_many_spaces_here"},
		{"leading and trailing space", "  padded  ", "padded"},
		{"empty becomes untitled", "", "Untitled"},
		{"only invalid chars becomes untitled", `///:::`, "Untitled"},
		{"unicode preserved", "深入理解计算机系统", "深入理解计算机系统"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameLimitsLength(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizeFilename(long)
	assert.LessOrEqual(t, len(got), 200)
	assert.NotEmpty(t, got)
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "#FFFF00", NormalizeColor("yellow"))
	assert.Equal(t, "#FFFF00", NormalizeColor(" Yellow "))
	assert.Equal(t, "#ABCDEF", NormalizeColor("#ABCDEF"))
	assert.Equal(t, "", NormalizeColor(""))
}
