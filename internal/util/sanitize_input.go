package util

import (
	"html"
	"strings"
)

// SanitizeInput trims surrounding whitespace and escapes HTML/script-like
// characters before a value is persisted or logged.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
