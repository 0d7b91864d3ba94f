package convert

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultFrameHeight = 1080
	gifFrameRate       = 15
)

type encodeJob struct {
	input     string
	output    string
	format    Format
	quality   Quality
	aspect    AspectRatio
	watermark string
	probe     ProbeInfo
}

func buildArgs(job encodeJob) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", job.input}
	if job.format == FormatGIF {
		args = append(args,
			"-vf", fmt.Sprintf("fps=%d,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse", gifFrameRate),
			"-an",
			"-loop", "0",
		)
		return append(args, job.output)
	}

	preset := PresetFor(job.quality)
	if filters := videoFilters(job, preset); len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	codec := formatCodecs[job.format]
	args = append(args, "-c:v", codec.video)
	switch job.format {
	case FormatMOV:
		args = append(args, "-profile:v", "3")
	case FormatMP4:
		if job.quality == QualityOriginal {
			args = append(args, "-crf", "18")
		}
		args = append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart")
	case FormatWebM:
		if job.quality == QualityOriginal {
			args = append(args, "-crf", "30", "-b:v", "0")
		}
	}
	if preset.VideoBitrate != "" && job.format != FormatMOV {
		args = append(args, "-b:v", preset.VideoBitrate)
	}
	args = append(args, "-c:a", codec.audio)
	if preset.AudioBitrate != "" && job.format != FormatMOV {
		args = append(args, "-b:a", preset.AudioBitrate)
	}
	return append(args, job.output)
}

func videoFilters(job encodeJob, preset Preset) []string {
	var filters []string
	switch {
	case !job.aspect.IsZero():
		height := preset.Height
		if height == 0 {
			height = sourceHeight(job.probe)
		}
		w, h := job.aspect.Frame(height)
		filters = append(filters,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
			"setsar=1",
		)
	case preset.Height > 0:
		filters = append(filters, "scale=-2:"+strconv.Itoa(preset.Height))
	}
	if text := strings.TrimSpace(job.watermark); text != "" {
		filters = append(filters, watermarkFilter(text))
	}
	return filters
}

func sourceHeight(probe ProbeInfo) int {
	if probe.Height <= 0 {
		return defaultFrameHeight
	}
	return probe.Height
}

// watermarkFilter anchors text bottom-right with a small margin.
func watermarkFilter(text string) string {
	return fmt.Sprintf("drawtext=text='%s':fontcolor=white@0.8:fontsize=h/24:x=w-tw-20:y=h-th-20", escapeDrawtext(text))
}

var drawtextEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`, `,`, `\,`)

func escapeDrawtext(text string) string {
	return drawtextEscaper.Replace(text)
}

func thumbnailArgs(input, output string, at float64) []string {
	if at < 0 {
		at = 0
	}
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "2",
		output,
	}
}

func trimArgs(input, output string, start, duration float64) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-i", input,
		"-t", strconv.FormatFloat(duration, 'f', 3, 64),
		"-map", "0",
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	}
}
