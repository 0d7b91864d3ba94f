package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/services"
)

// Options describes one conversion.
type Options struct {
	InputPath string
	// OutputPath is optional; when empty the output lands in OutputDir named
	// after the input with the format's extension.
	OutputPath  string
	OutputDir   string
	Format      string
	Quality     string
	AspectRatio string
	Watermark   string
	// MaxSizeMB and MaxDuration (seconds) are ceilings; zero disables them.
	MaxSizeMB   float64
	MaxDuration float64
	Thumbnail   bool
}

// Result describes a finished conversion.
type Result struct {
	OutputPath    string
	Format        Format
	FileSize      int64
	Duration      float64
	Width         int
	Height        int
	ThumbnailPath string
}

// Converter drives an Encoder through validation, encode and post checks.
type Converter struct {
	encoder           Encoder
	logger            *slog.Logger
	conversionTimeout time.Duration
	thumbnailTimeout  time.Duration
	// probeTimeout falls back to thumbnailTimeout when zero.
	probeTimeout time.Duration
}

// Option customizes a Converter.
type Option func(*Converter)

// WithLogger sets the converter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTimeouts bounds the encode and thumbnail subprocesses.
func WithTimeouts(conversion, thumbnail time.Duration) Option {
	return func(c *Converter) {
		c.conversionTimeout = conversion
		c.thumbnailTimeout = thumbnail
	}
}

// WithProbeTimeout bounds each ffprobe call.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(c *Converter) {
		c.probeTimeout = timeout
	}
}

// New builds a Converter around encoder.
func New(encoder Encoder, opts ...Option) *Converter {
	c := &Converter{
		encoder:           encoder,
		logger:            logging.NewNop(),
		conversionTimeout: 10 * time.Minute,
		thumbnailTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "converter")
	return c
}

// NewFromConfig builds a Converter backed by the configured ffmpeg binaries.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Converter {
	encoder := FFmpeg{
		FFmpegBinary:  cfg.Converter.FFmpegBinary,
		FFprobeBinary: cfg.Converter.FFprobeBinary,
	}
	return New(encoder, WithLogger(logger), WithTimeouts(cfg.ConversionTimeout(), cfg.ThumbnailTimeout()), WithProbeTimeout(cfg.ProbeTimeout()))
}

// Encoder returns the underlying subprocess boundary.
func (c *Converter) Encoder() Encoder {
	return c.encoder
}

// Convert encodes opts.InputPath. Validation failures return before any
// subprocess starts; an output over MaxSizeMB is deleted.
func (c *Converter) Convert(ctx context.Context, opts Options) (Result, error) {
	const op = "convert"

	input := strings.TrimSpace(opts.InputPath)
	if err := requireFile(input); err != nil {
		return Result{}, NewError(KindInputNotFound, op, err)
	}
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return Result{}, NewError(KindUnsupportedFormat, op, err)
	}
	quality, err := ParseQuality(opts.Quality)
	if err != nil {
		return Result{}, NewError(KindUnsupportedFormat, op, err)
	}
	aspect, err := ParseAspectRatio(opts.AspectRatio)
	if err != nil {
		return Result{}, NewError(KindUnsupportedFormat, op, err)
	}

	probe, err := c.probe(ctx, input)
	if err != nil {
		probeErr := NewError(KindProbeFailed, op, err)
		probeErr.Timeout = isDeadline(err)
		return Result{}, probeErr
	}
	if opts.MaxDuration > 0 && probe.Duration > opts.MaxDuration {
		return Result{}, NewError(KindDurationExceeded, op,
			fmt.Errorf("duration %.2fs exceeds limit %.2fs", probe.Duration, opts.MaxDuration))
	}

	output := outputPath(opts, input, format)
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Result{}, NewError(KindConversionFailed, op, fmt.Errorf("create output dir: %w", err))
	}

	logger := c.logger.With(
		logging.String("input", input),
		logging.String("output", output),
		logging.String("format", string(format)),
		logging.String("quality", string(quality)),
	)
	args := buildArgs(encodeJob{
		input:     input,
		output:    output,
		format:    format,
		quality:   quality,
		aspect:    aspect,
		watermark: opts.Watermark,
		probe:     probe,
	})
	logger.Debug("ffmpeg command", logging.String("args", strings.Join(args, " ")))

	started := time.Now()
	if err := c.run(ctx, c.conversionTimeout, args); err != nil {
		_ = os.Remove(output)
		convErr := NewError(KindConversionFailed, op, err)
		convErr.Timeout = isDeadline(err)
		return Result{}, convErr
	}

	info, err := os.Stat(output)
	if err != nil {
		return Result{}, NewError(KindPostConversion, op, fmt.Errorf("stat output: %w", err))
	}
	if opts.MaxSizeMB > 0 && float64(info.Size()) > opts.MaxSizeMB*1024*1024 {
		_ = os.Remove(output)
		return Result{}, NewError(KindSizeExceeded, op,
			fmt.Errorf("output %d bytes exceeds limit %.1f MB", info.Size(), opts.MaxSizeMB))
	}

	result := Result{
		OutputPath: output,
		Format:     format,
		FileSize:   info.Size(),
		Duration:   probe.Duration,
		Width:      probe.Width,
		Height:     probe.Height,
	}
	if outProbe, err := c.probe(ctx, output); err == nil {
		result.Duration = outProbe.Duration
		result.Width = outProbe.Width
		result.Height = outProbe.Height
	} else {
		logger.Debug("output probe failed; reporting source duration", logging.Error(err))
	}

	if opts.Thumbnail {
		result.ThumbnailPath = c.thumbnail(ctx, logger, output, result.Duration)
	}

	logger.Info("clip converted",
		logging.String(logging.FieldEventType, "convert_complete"),
		logging.Int64("size_bytes", result.FileSize),
		logging.Float64("duration_seconds", result.Duration),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Trim stream-copies [start, start+duration) of input into output.
func (c *Converter) Trim(ctx context.Context, input, output string, start, duration float64) error {
	const op = "trim"

	if err := requireFile(input); err != nil {
		return NewError(KindInputNotFound, op, err)
	}
	if math.IsNaN(start) || math.IsNaN(duration) || start < 0 || duration <= 0 {
		return services.Wrap(services.ErrValidation, "convert", op, fmt.Sprintf("invalid window start=%.3f duration=%.3f", start, duration), nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return NewError(KindConversionFailed, op, fmt.Errorf("create output dir: %w", err))
	}
	if err := c.run(ctx, c.conversionTimeout, trimArgs(input, output, start, duration)); err != nil {
		_ = os.Remove(output)
		convErr := NewError(KindConversionFailed, op, err)
		convErr.Timeout = isDeadline(err)
		return convErr
	}
	if _, err := os.Stat(output); err != nil {
		return NewError(KindPostConversion, op, fmt.Errorf("stat output: %w", err))
	}
	return nil
}

// thumbnail grabs a midpoint frame. Failures are logged, never returned.
func (c *Converter) thumbnail(ctx context.Context, logger *slog.Logger, video string, duration float64) string {
	thumb := strings.TrimSuffix(video, filepath.Ext(video)) + ".jpg"
	if err := c.run(ctx, c.thumbnailTimeout, thumbnailArgs(video, thumb, duration/2)); err != nil {
		_ = os.Remove(thumb)
		logging.WarnWithContext(logger, "thumbnail generation failed", "thumbnail_failed",
			logging.String(logging.FieldImpact, "clip has no thumbnail"),
			logging.String(logging.FieldErrorHint, "check ffmpeg stderr for the thumbnail command"),
			logging.Error(err),
		)
		return ""
	}
	if _, err := os.Stat(thumb); err != nil {
		return ""
	}
	return thumb
}

func (c *Converter) probe(ctx context.Context, path string) (ProbeInfo, error) {
	timeout := c.probeTimeout
	if timeout <= 0 {
		timeout = c.thumbnailTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.encoder.Probe(ctx, path)
}

func (c *Converter) run(ctx context.Context, timeout time.Duration, args []string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.encoder.Run(ctx, args)
}

func requireFile(path string) error {
	if path == "" {
		return errors.New("input path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func outputPath(opts Options, input string, format Format) string {
	if out := strings.TrimSpace(opts.OutputPath); out != "" {
		return out
	}
	dir := strings.TrimSpace(opts.OutputDir)
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := base + format.Extension()
	if filepath.Join(dir, name) == filepath.Clean(input) {
		name = base + ".converted" + format.Extension()
	}
	return filepath.Join(dir, name)
}

func isDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
