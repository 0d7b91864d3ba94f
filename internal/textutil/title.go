package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ClipTitle builds the default display title "<Kind>: <Label>" in title case.
// Separators in the label collapse to single spaces; an empty label yields
// just the kind.
func ClipTitle(kind, label string) string {
	caser := cases.Title(language.Und)
	kind = strings.TrimSpace(kind)
	label = collapse(label)
	switch {
	case kind == "" && label == "":
		return "Untitled Clip"
	case label == "":
		return caser.String(kind)
	case kind == "":
		return caser.String(label)
	}
	return caser.String(kind) + ": " + caser.String(label)
}

func collapse(value string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.TrimSpace(value) {
		if unicode.IsSpace(r) || r == '_' || r == '-' {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(b.String())
}
