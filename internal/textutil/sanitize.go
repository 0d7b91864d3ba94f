package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes a clip title usable as a file name on any
// filesystem: path separators, colons and asterisks turn into dashes and the
// remaining reserved characters are dropped.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(cleaned)
}

// SanitizeToken lowercases value to [a-z0-9_-], mapping anything else to an
// underscore. Empty results become "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(value))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}
