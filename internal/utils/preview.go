package utils

import "strings"

// Preview renders s as a single log-friendly line of at most limit runes.
// Runs of whitespace, including the line breaks of extracted resume text,
// collapse to one space. A cut preview ends with "...".
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	line := strings.Join(strings.Fields(s), " ")
	runes := []rune(line)
	if len(runes) <= limit {
		return line
	}
	return string(runes[:limit]) + "..."
}
