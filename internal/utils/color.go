package utils

import "strings"

var colorNames = map[string]string{
	"yellow": "#FFFF00",
	"blue":   "#0000FF",
	"pink":   "#FFC0CB",
	"orange": "#FFA500",
	"green":  "#00FF00",
	"purple": "#800080",
	"red":    "#FF0000",
}

// NormalizeColor maps well-known color names to hex codes. Unknown
// values (including values already in hex form) are returned as-is.
func NormalizeColor(color string) string {
	if hex, ok := colorNames[strings.ToLower(strings.TrimSpace(color))]; ok {
		return hex
	}
	return color
}
