package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"clipforge/internal/media/ffprobe"
)

// ProbeInfo is what the converter needs to know about a media file.
type ProbeInfo = ffprobe.Summary

// Encoder is the subprocess boundary.
type Encoder interface {
	Probe(ctx context.Context, path string) (ProbeInfo, error)
	Run(ctx context.Context, args []string) error
}

// FFmpeg runs the real ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
	// WaitDelay bounds how long Run waits for pipes after the process group
	// has been killed.
	WaitDelay time.Duration
}

const stderrTail = 2048

// Probe implements Encoder.
func (f FFmpeg) Probe(ctx context.Context, path string) (ProbeInfo, error) {
	result, err := ffprobe.Inspect(ctx, f.FFprobeBinary, path)
	if err != nil {
		return ProbeInfo{}, err
	}
	return result.Summary(), nil
}

// Run implements Encoder. Cancelling ctx kills the whole ffmpeg process group.
func (f FFmpeg) Run(ctx context.Context, args []string) error {
	binary := strings.TrimSpace(f.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	setProcessGroup(cmd)
	cmd.WaitDelay = f.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg: %w", errors.Join(ctxErr, err))
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), stderrTail))
	}
	return nil
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
