package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Encoder names an ffmpeg encoder a conversion format depends on.
type Encoder struct {
	Name   string
	Format string
}

// RequiredEncoders lists the encoders used by the supported output formats.
// gif uses the built-in gif encoder and needs no entry.
var RequiredEncoders = []Encoder{
	{Name: "libx264", Format: "mp4"},
	{Name: "aac", Format: "mp4"},
	{Name: "libvpx-vp9", Format: "webm"},
	{Name: "libopus", Format: "webm"},
	{Name: "prores_ks", Format: "mov"},
	{Name: "gif", Format: "gif"},
}

// CheckFFmpegEncoders asks ffmpeg for its encoder list and reports which of
// the required encoders are compiled in.
func CheckFFmpegEncoders(ctx context.Context, ffmpegBinary string) []Status {
	binary := strings.TrimSpace(ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, binary, "-hide_banner", "-encoders").Output()
	if err != nil {
		results := make([]Status, 0, len(RequiredEncoders))
		for _, enc := range RequiredEncoders {
			results = append(results, encoderStatus(enc, binary, false, fmt.Sprintf("ffmpeg -encoders failed: %v", err)))
		}
		return results
	}
	available := ParseEncoders(string(out))
	results := make([]Status, 0, len(RequiredEncoders))
	for _, enc := range RequiredEncoders {
		if available[enc.Name] {
			results = append(results, encoderStatus(enc, binary, true, ""))
			continue
		}
		results = append(results, encoderStatus(enc, binary, false, fmt.Sprintf("encoder %q not compiled into %s", enc.Name, binary)))
	}
	return results
}

func encoderStatus(enc Encoder, binary string, ok bool, detail string) Status {
	return Status{
		Name:        "encoder " + enc.Name,
		Command:     binary,
		Description: fmt.Sprintf("Required for %s output", enc.Format),
		Optional:    true,
		Available:   ok,
		Detail:      detail,
	}
}

// ParseEncoders extracts encoder names from `ffmpeg -encoders` output. Lines
// before the "------" separator are legend text.
func ParseEncoders(output string) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(strings.NewReader(output))
	inList := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inList {
			if strings.HasPrefix(line, "------") {
				inList = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
