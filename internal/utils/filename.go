package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	// Whitespace runs are collapsed to a single underscore
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a book title into a filesystem-safe file name.
// Invalid characters are removed and whitespace is collapsed to underscores.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = whitespaceRuns.ReplaceAllString(name, "_")

	// Limit length (most filesystems support 255, but leave room for extension)
	if len(name) > 200 {
		name = strings.TrimRight(name[:200], "_")
	}

	if name == "" {
		name = "Untitled"
	}

	return name
}
