package utils

import "unicode/utf8"

// Truncate shortens s to at most max runes, appending "..." when cut.
// Used to keep offending provider text in error messages and logs bounded.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
