package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"clipforge/internal/media/convert"
)

// Platform names a publishing target such as TIKTOK.
type Platform string

const (
	PlatformTikTok         Platform = "TIKTOK"
	PlatformYouTubeShorts  Platform = "YOUTUBE_SHORTS"
	PlatformInstagramReels Platform = "INSTAGRAM_REELS"
	PlatformYouTube        Platform = "YOUTUBE"
	PlatformTwitter        Platform = "TWITTER"
	PlatformLinkedIn       Platform = "LINKEDIN"
	PlatformThreads        Platform = "THREADS"
	PlatformBluesky        Platform = "BLUESKY"
)

// Profile holds a platform's caption and media constraints.
type Profile struct {
	Platform                Platform `yaml:"-"`
	MaxTextLength           int      `yaml:"max_text_length"`
	SupportsThreading       bool     `yaml:"supports_threading"`
	SupportsHashtags        bool     `yaml:"supports_hashtags"`
	SupportsMarkdown        bool     `yaml:"supports_markdown"`
	SupportsEmojis          bool     `yaml:"supports_emojis"`
	MaxVideoSizeMB          float64  `yaml:"max_video_size_mb"`
	MaxVideoDurationSeconds float64  `yaml:"max_video_duration_seconds"`
	VideoFormats            []string `yaml:"video_formats"`
	AspectRatios            []string `yaml:"aspect_ratios"`
}

// SupportsFormat reports whether format is accepted.
func (p Profile) SupportsFormat(format string) bool {
	return containsFold(p.VideoFormats, format)
}

// PreferredAspect is 9:16 when supported, else 16:9, else the first listed.
func (p Profile) PreferredAspect() string {
	for _, want := range []string{"9:16", "16:9"} {
		if containsFold(p.AspectRatios, want) {
			return want
		}
	}
	if len(p.AspectRatios) > 0 {
		return p.AspectRatios[0]
	}
	return ""
}

func builtinProfiles() map[Platform]Profile {
	return map[Platform]Profile{
		PlatformTikTok: {
			MaxTextLength: 2200, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 287, MaxVideoDurationSeconds: 600,
			VideoFormats: []string{"mp4", "mov"}, AspectRatios: []string{"9:16"},
		},
		PlatformYouTubeShorts: {
			MaxTextLength: 5000, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 2048, MaxVideoDurationSeconds: 180,
			VideoFormats: []string{"mp4", "mov", "webm"}, AspectRatios: []string{"9:16"},
		},
		PlatformInstagramReels: {
			MaxTextLength: 2200, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 1024, MaxVideoDurationSeconds: 90,
			VideoFormats: []string{"mp4", "mov"}, AspectRatios: []string{"9:16", "4:5"},
		},
		PlatformYouTube: {
			MaxTextLength: 5000, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 128000, MaxVideoDurationSeconds: 43200,
			VideoFormats: []string{"mp4", "mov", "webm"}, AspectRatios: []string{"16:9"},
		},
		PlatformTwitter: {
			MaxTextLength: 280, SupportsThreading: true, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 512, MaxVideoDurationSeconds: 140,
			VideoFormats: []string{"mp4", "mov", "gif"}, AspectRatios: []string{"16:9", "1:1"},
		},
		PlatformLinkedIn: {
			MaxTextLength: 3000, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 5120, MaxVideoDurationSeconds: 600,
			VideoFormats: []string{"mp4"}, AspectRatios: []string{"16:9", "1:1", "4:5"},
		},
		PlatformThreads: {
			MaxTextLength: 500, SupportsThreading: true, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 1024, MaxVideoDurationSeconds: 300,
			VideoFormats: []string{"mp4", "mov"}, AspectRatios: []string{"9:16", "4:5", "1:1"},
		},
		PlatformBluesky: {
			MaxTextLength: 300, SupportsThreading: true, SupportsHashtags: true, SupportsEmojis: true,
			MaxVideoSizeMB: 50, MaxVideoDurationSeconds: 180,
			VideoFormats: []string{"mp4"}, AspectRatios: []string{"16:9", "1:1", "9:16"},
		},
	}
}

// Registry resolves platform names to profiles.
type Registry struct {
	profiles map[Platform]Profile
}

// DefaultRegistry holds the built-in profiles.
func DefaultRegistry() *Registry {
	profiles := builtinProfiles()
	for name, profile := range profiles {
		profile.Platform = name
		profiles[name] = profile
	}
	return &Registry{profiles: profiles}
}

// LoadRegistry starts from the built-in profiles and applies overrides from a
// YAML file keyed by platform name. Keys present in the file replace the
// built-in values; unknown platforms are added. An empty path returns the
// defaults.
func LoadRegistry(path string) (*Registry, error) {
	registry := DefaultRegistry()
	path = strings.TrimSpace(path)
	if path == "" {
		return registry, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return registry, nil
		}
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}
	if err := registry.apply(data); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	return registry, nil
}

func (r *Registry) apply(data []byte) error {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for key, node := range doc {
		name := NormalizePlatform(key)
		profile := r.profiles[name]
		// Decoding onto the existing value keeps fields the file omits.
		if err := node.Decode(&profile); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		profile.Platform = name
		if err := profile.validate(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		r.profiles[name] = profile
	}
	return nil
}

func (p Profile) validate() error {
	if p.MaxTextLength < 0 || p.MaxVideoSizeMB < 0 || p.MaxVideoDurationSeconds < 0 {
		return fmt.Errorf("limits must be non-negative")
	}
	if len(p.VideoFormats) == 0 {
		return fmt.Errorf("video_formats must not be empty")
	}
	for _, format := range p.VideoFormats {
		if strings.TrimSpace(format) == "" {
			return fmt.Errorf("video_formats: empty entry")
		}
		if _, err := convert.ParseFormat(format); err != nil {
			return fmt.Errorf("video_formats: %w", err)
		}
	}
	for _, ratio := range p.AspectRatios {
		if strings.TrimSpace(ratio) == "" {
			return fmt.Errorf("aspect_ratios: empty entry")
		}
		if _, err := convert.ParseAspectRatio(ratio); err != nil {
			return fmt.Errorf("aspect_ratios: %w", err)
		}
	}
	return nil
}

// Lookup returns the profile for name, accepting any case and dashes.
func (r *Registry) Lookup(name string) (Profile, bool) {
	profile, ok := r.profiles[NormalizePlatform(name)]
	return profile, ok
}

// Platforms lists registered platforms in name order.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.profiles))
	for name := range r.profiles {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NormalizePlatform upper-cases name and maps dashes and spaces to underscores.
func NormalizePlatform(name string) Platform {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	return Platform(name)
}

func containsFold(values []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), want) {
			return true
		}
	}
	return false
}
