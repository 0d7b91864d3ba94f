package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/fileutil"
	"clipforge/internal/logging"
	"clipforge/internal/media/convert"
	"clipforge/internal/queue"
	"clipforge/internal/services"
	"clipforge/internal/textutil"
)

// MediaConverter is the part of convert.Converter the pipeline uses.
type MediaConverter interface {
	Trim(ctx context.Context, input, output string, start, duration float64) error
	Convert(ctx context.Context, opts convert.Options) (convert.Result, error)
}

// SessionLookup resolves an item's recording source.
type SessionLookup interface {
	GetSession(ctx context.Context, id string) (*queue.Session, error)
}

// ClipPipeline cuts an item's window from the session recording, converts it
// with the configured defaults inside a per-item work directory, and moves the
// result into the output directory.
type ClipPipeline struct {
	sessions  SessionLookup
	converter MediaConverter
	settings  config.Converter
	outputDir string
	workDir   string
	epsilon   float64
	logger    *slog.Logger
}

// NewClipPipeline builds the default Handler.
func NewClipPipeline(cfg *config.Config, sessions SessionLookup, converter MediaConverter, logger *slog.Logger) *ClipPipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ClipPipeline{
		sessions:  sessions,
		converter: converter,
		settings:  cfg.Converter,
		outputDir: cfg.Paths.OutputDir,
		workDir:   cfg.Paths.WorkDir,
		epsilon:   cfg.Processor.DurationEpsilon,
		logger:    logging.NewComponentLogger(logger, "clip-pipeline"),
	}
}

// Name implements Handler.
func (p *ClipPipeline) Name() string { return "clip-pipeline" }

// Process implements Handler.
func (p *ClipPipeline) Process(ctx context.Context, item *queue.Item) (*queue.Clip, error) {
	logger := logging.WithContext(ctx, p.logger)

	window, ok := item.Window()
	if !ok {
		return nil, services.Wrap(services.ErrValidation, stageName, "window", "item has no end time", nil)
	}
	if window <= 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "window", fmt.Sprintf("empty clip window t0=%.3f t1=%.3f", item.T0, *item.T1), nil)
	}

	session, err := p.sessions.GetSession(ctx, item.SessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "load session", item.SessionID, err)
	}
	if session == nil || strings.TrimSpace(session.SourcePath) == "" {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load session", "session has no recording source", nil)
	}

	workDir := filepath.Join(p.workDir, item.ID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "prepare work dir", workDir, err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work dir cleanup failed", logging.String("path", workDir), logging.Error(err))
		}
	}()

	ext := filepath.Ext(session.SourcePath)
	if ext == "" {
		ext = ".mkv"
	}
	raw := filepath.Join(workDir, "raw"+ext)
	if err := p.converter.Trim(ctx, session.SourcePath, raw, item.T0, window); err != nil {
		return nil, err
	}

	result, err := p.converter.Convert(ctx, convert.Options{
		InputPath:   raw,
		OutputPath:  filepath.Join(workDir, item.ID+"."+p.format()),
		Format:      p.settings.Format,
		Quality:     p.settings.Quality,
		AspectRatio: p.settings.AspectRatio,
		Watermark:   p.settings.Watermark,
		Thumbnail:   p.settings.Thumbnail,
	})
	if err != nil {
		return nil, err
	}

	if drift := math.Abs(result.Duration - window); drift > p.epsilon {
		logging.WarnWithContext(logger, "clip duration differs from requested window", "duration_drift",
			logging.Float64("window_seconds", window),
			logging.Float64("probed_seconds", result.Duration),
			logging.Float64("drift_seconds", drift),
			logging.String(logging.FieldImpact, "clip may start or end on a nearby keyframe"),
			logging.String(logging.FieldErrorHint, "source keyframe spacing exceeds duration_epsilon"),
		)
	}

	finalDir := filepath.Join(p.outputDir, item.SessionID)
	base := publishedName(item)
	finalPath := filepath.Join(finalDir, base+"."+p.format())
	if err := fileutil.MoveFile(result.OutputPath, finalPath); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "publish clip", finalPath, err)
	}
	thumbnail := ""
	if result.ThumbnailPath != "" {
		thumbnail = filepath.Join(finalDir, base+filepath.Ext(result.ThumbnailPath))
		if err := fileutil.MoveFile(result.ThumbnailPath, thumbnail); err != nil {
			logging.WarnWithContext(logger, "thumbnail publish failed", "thumbnail_publish_failed",
				logging.String(logging.FieldImpact, "clip has no thumbnail"),
				logging.Error(err),
			)
			thumbnail = ""
		}
	}

	return &queue.Clip{
		SessionID:     item.SessionID,
		QueueItemID:   item.ID,
		Path:          finalPath,
		Duration:      result.Duration,
		FileSize:      result.FileSize,
		ThumbnailPath: thumbnail,
	}, nil
}

// publishedName names the clip after its title when it has one. The short item
// id keeps two clips with the same title apart.
func publishedName(item *queue.Item) string {
	title := textutil.SanitizeFileName(item.Title)
	if title == "" {
		return item.ID
	}
	short := item.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return title + " - " + short
}

func (p *ClipPipeline) format() string {
	format, err := convert.ParseFormat(p.settings.Format)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(p.settings.Format))
	}
	return string(format)
}
