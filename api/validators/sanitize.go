package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims free text, drops control characters other than
// newlines and caps it at maxLen runes. Notes and reasons end up in audit
// entries and order notes, so multi-byte text is never cut mid-rune.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
