package convert

import (
	"fmt"
	"strings"
)

// Format is an output container.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatWebM Format = "webm"
	FormatGIF  Format = "gif"
	FormatMOV  Format = "mov"
)

// Quality selects a bitrate and resolution preset.
type Quality string

const (
	QualityLow      Quality = "low"
	QualityMedium   Quality = "medium"
	QualityHigh     Quality = "high"
	QualityOriginal Quality = "original"
)

// Preset holds the encoder overrides for a Quality. A zero Height means the
// source resolution is kept.
type Preset struct {
	VideoBitrate string
	AudioBitrate string
	Height       int
}

var presets = map[Quality]Preset{
	QualityLow:      {VideoBitrate: "800k", AudioBitrate: "96k", Height: 480},
	QualityMedium:   {VideoBitrate: "2500k", AudioBitrate: "128k", Height: 720},
	QualityHigh:     {VideoBitrate: "5000k", AudioBitrate: "192k", Height: 1080},
	QualityOriginal: {},
}

type codecs struct {
	video string
	audio string
}

var formatCodecs = map[Format]codecs{
	FormatMP4:  {video: "libx264", audio: "aac"},
	FormatWebM: {video: "libvpx-vp9", audio: "libopus"},
	FormatGIF:  {video: "gif"},
	FormatMOV:  {video: "prores_ks", audio: "pcm_s16le"},
}

// ParseFormat validates a container name. Empty selects mp4.
func ParseFormat(value string) (Format, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return FormatMP4, nil
	}
	format := Format(value)
	if _, ok := formatCodecs[format]; !ok {
		return "", fmt.Errorf("unsupported format %q", value)
	}
	return format, nil
}

// ParseQuality validates a preset name. Empty selects medium.
func ParseQuality(value string) (Quality, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return QualityMedium, nil
	}
	quality := Quality(value)
	if _, ok := presets[quality]; !ok {
		return "", fmt.Errorf("unsupported quality %q", value)
	}
	return quality, nil
}

// PresetFor returns the overrides for quality.
func PresetFor(quality Quality) Preset {
	return presets[quality]
}

// Extension returns the file extension for format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// AspectRatio is a target frame shape such as 9:16.
type AspectRatio struct {
	W int
	H int
}

// ParseAspectRatio accepts 16:9, 9:16, 1:1 and 4:5. Empty keeps the source
// shape and returns the zero value.
func ParseAspectRatio(value string) (AspectRatio, error) {
	switch strings.TrimSpace(value) {
	case "":
		return AspectRatio{}, nil
	case "16:9":
		return AspectRatio{W: 16, H: 9}, nil
	case "9:16":
		return AspectRatio{W: 9, H: 16}, nil
	case "1:1":
		return AspectRatio{W: 1, H: 1}, nil
	case "4:5":
		return AspectRatio{W: 4, H: 5}, nil
	}
	return AspectRatio{}, fmt.Errorf("unsupported aspect ratio %q", value)
}

// IsZero reports whether no aspect ratio was requested.
func (a AspectRatio) IsZero() bool { return a.W == 0 || a.H == 0 }

func (a AspectRatio) String() string {
	if a.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d:%d", a.W, a.H)
}

// Frame returns the output dimensions for a frame height of at most height.
// The width follows from the ratio, so portrait frames get narrower instead
// of taller.
func (a AspectRatio) Frame(height int) (int, int) {
	height -= height % 2
	width := height * a.W / a.H
	width -= width % 2
	return width, height
}
