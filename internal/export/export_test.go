package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"clipforge/internal/media/convert"
)

type fakeConverter struct {
	mu    sync.Mutex
	calls []convert.Options
	fail  map[string]error
}

func (f *fakeConverter) Convert(_ context.Context, opts convert.Options) (convert.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.mu.Unlock()
	for suffix, err := range f.fail {
		if strings.Contains(opts.OutputPath, suffix) {
			return convert.Result{}, err
		}
	}
	return convert.Result{OutputPath: opts.OutputPath, FileSize: 10, Duration: 5}, nil
}

func TestExportTikTokDefaults(t *testing.T) {
	conv := &fakeConverter{}
	opt := New(conv, nil, nil, 1)

	result, err := opt.Export(context.Background(), Request{ClipPath: "/clips/abc.mp4", Platform: "tiktok", OutputDir: "/exports"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Format != "mp4" || result.AspectRatio != "9:16" {
		t.Fatalf("expected mp4 at 9:16, got %s at %s", result.Format, result.AspectRatio)
	}
	if len(conv.calls) != 1 {
		t.Fatalf("expected one conversion, got %d", len(conv.calls))
	}
	call := conv.calls[0]
	if call.MaxSizeMB != 287 || call.MaxDuration != 600 {
		t.Fatalf("expected TikTok ceilings, got %+v", call)
	}
	if call.OutputPath != "/exports/abc_tiktok.mp4" {
		t.Fatalf("unexpected output path %q", call.OutputPath)
	}
}

func TestExportAspectFallbacks(t *testing.T) {
	conv := &fakeConverter{}
	opt := New(conv, nil, nil, 1)

	result, err := opt.Export(context.Background(), Request{ClipPath: "/c.mp4", Platform: "LINKEDIN"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.AspectRatio != "16:9" {
		t.Fatalf("expected 16:9 when 9:16 is unsupported, got %s", result.AspectRatio)
	}
}

func TestExportUnknownPlatform(t *testing.T) {
	conv := &fakeConverter{}
	_, err := New(conv, nil, nil, 1).Export(context.Background(), Request{ClipPath: "/c.mp4", Platform: "MYSPACE"})
	if convert.KindOf(err) != convert.KindUnknownPlatform {
		t.Fatalf("expected UNKNOWN_PLATFORM, got %v", err)
	}
	if len(conv.calls) != 0 {
		t.Fatal("converter must not run")
	}
}

func TestExportUnsupportedFormatForPlatform(t *testing.T) {
	conv := &fakeConverter{}
	_, err := New(conv, nil, nil, 1).Export(context.Background(), Request{ClipPath: "/c.mp4", Platform: "BLUESKY", Format: "gif"})
	if convert.KindOf(err) != convert.KindUnsupportedFormatForPlatform {
		t.Fatalf("expected UNSUPPORTED_FORMAT_FOR_PLATFORM, got %v", err)
	}
}

func TestExportAllCollectsFailures(t *testing.T) {
	conv := &fakeConverter{fail: map[string]error{
		"_twitter": convert.NewError(convert.KindSizeExceeded, "convert", errors.New("too big")),
	}}
	opt := New(conv, nil, nil, 2)

	outcomes, err := opt.ExportAll(context.Background(), Request{ClipPath: "/c.mp4"}, []string{"TIKTOK", "TWITTER", "YOUTUBE"})
	if err == nil || !strings.Contains(err.Error(), "TWITTER") {
		t.Fatalf("expected joined TWITTER failure, got %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Fatalf("other platforms should succeed: %+v", outcomes)
	}
	if convert.KindOf(outcomes[1].Err) != convert.KindSizeExceeded {
		t.Fatalf("expected SIZE_EXCEEDED for twitter, got %v", outcomes[1].Err)
	}
	if len(conv.calls) != 3 {
		t.Fatalf("expected 3 conversions, got %d", len(conv.calls))
	}
}

func TestLoadRegistryOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	doc := `
tiktok:
  max_video_size_mb: 100
mastodon:
  max_text_length: 500
  video_formats: [mp4, webm]
  aspect_ratios: ["16:9"]
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	registry, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	tiktok, ok := registry.Lookup("TIKTOK")
	if !ok || tiktok.MaxVideoSizeMB != 100 {
		t.Fatalf("expected overridden size, got %+v", tiktok)
	}
	if tiktok.MaxTextLength != 2200 || tiktok.PreferredAspect() != "9:16" {
		t.Fatalf("omitted fields should keep built-in values, got %+v", tiktok)
	}
	mastodon, ok := registry.Lookup("Mastodon")
	if !ok || mastodon.Platform != "MASTODON" || mastodon.VideoFormats[0] != "mp4" {
		t.Fatalf("expected added platform, got %+v %v", mastodon, ok)
	}
	if len(registry.Platforms()) != 9 {
		t.Fatalf("expected 9 platforms, got %d", len(registry.Platforms()))
	}
}

func TestLoadRegistryRejectsEmptyFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("newsite:\n  max_text_length: 10\n"), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatal("expected validation error for profile without formats")
	}
}

func TestLoadRegistryRejectsUnsupportedAspectsAndFormats(t *testing.T) {
	cases := map[string]string{
		"aspect": "cinema:\n  video_formats: [mp4]\n  aspect_ratios: [\"21:9\"]\n",
		"format": "retro:\n  video_formats: [avi]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profiles.yaml")
			if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
				t.Fatalf("write profiles: %v", err)
			}
			_, err := LoadRegistry(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), name) {
				t.Fatalf("expected %s in error, got %v", name, err)
			}
		})
	}
}

func TestLoadRegistryMissingFileUsesDefaults(t *testing.T) {
	registry, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := registry.Lookup("youtube-shorts"); !ok {
		t.Fatal("expected built-in profile")
	}
}

func TestTruncateCaption(t *testing.T) {
	profile := Profile{MaxTextLength: 5}
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short"},
		{"too long", "too …"},
		{"héllo wörld", "héll…"},
		{"🎬🎬🎬🎬🎬🎬", "🎬🎬🎬🎬…"},
	}
	for _, tt := range tests {
		if got := TruncateCaption(profile, tt.in); got != tt.want {
			t.Fatalf("TruncateCaption(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := TruncateCaption(Profile{}, "unbounded"); got != "unbounded" {
		t.Fatalf("zero limit should not truncate, got %q", got)
	}
}
