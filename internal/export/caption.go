package export

import "unicode/utf8"

const ellipsis = "…"

// TruncateCaption shortens text to the profile's MaxTextLength runes, ending
// with an ellipsis when cut. A zero limit leaves text unchanged.
func TruncateCaption(profile Profile, text string) string {
	limit := profile.MaxTextLength
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit == 1 {
		return ellipsis
	}
	return string(runes[:limit-1]) + ellipsis
}
