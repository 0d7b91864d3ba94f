package textutil_test

import (
	"testing"

	"clipforge/internal/textutil"
)

func TestClipTitle(t *testing.T) {
	cases := []struct {
		kind, label, want string
	}{
		{"voice", "clip that", "Voice: Clip That"},
		{"gesture", "thumbs_up", "Gesture: Thumbs Up"},
		{"button", "", "Button"},
		{"", "", "Untitled Clip"},
	}
	for _, tc := range cases {
		if got := textutil.ClipTitle(tc.kind, tc.label); got != tc.want {
			t.Errorf("ClipTitle(%q, %q) = %q, want %q", tc.kind, tc.label, got, tc.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := textutil.SanitizeFileName(` Voice: "Clip" / That? `); got != "Voice- Clip - That" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"YouTube Shorts": "youtube_shorts",
		"":               "unknown",
		"***":            "unknown",
		"clip-01":        "clip-01",
	}
	for in, want := range cases {
		if got := textutil.SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
