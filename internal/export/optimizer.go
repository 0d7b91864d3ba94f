package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/media/convert"
	"clipforge/internal/textutil"
)

// Converter is the subset of convert.Converter the optimizer drives.
type Converter interface {
	Convert(ctx context.Context, opts convert.Options) (convert.Result, error)
}

// Request asks for one platform rendition of a clip.
type Request struct {
	ClipPath  string
	Platform  string
	Format    string
	Quality   string
	Watermark string
	OutputDir string
}

// Result is one finished rendition.
type Result struct {
	Platform    Platform
	Format      string
	AspectRatio string
	convert.Result
}

// Outcome pairs a platform with its result or error in ExportAll.
type Outcome struct {
	Platform Platform
	Result   Result
	Err      error
}

// Optimizer renders clips to platform constraints.
type Optimizer struct {
	converter   Converter
	registry    *Registry
	logger      *slog.Logger
	concurrency int
}

// New builds an Optimizer. A nil registry uses the built-in profiles.
func New(converter Converter, registry *Registry, logger *slog.Logger, concurrency int) *Optimizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Optimizer{
		converter:   converter,
		registry:    registry,
		logger:      logging.NewComponentLogger(logger, "export"),
		concurrency: concurrency,
	}
}

// NewFromConfig loads profile overrides from export.profiles_path.
func NewFromConfig(cfg *config.Config, converter Converter, logger *slog.Logger) (*Optimizer, error) {
	registry, err := LoadRegistry(cfg.Export.ProfilesPath)
	if err != nil {
		return nil, err
	}
	return New(converter, registry, logger, cfg.Export.Concurrency), nil
}

// Registry exposes the profile table.
func (o *Optimizer) Registry() *Registry {
	return o.registry
}

// Export renders req.ClipPath for req.Platform.
func (o *Optimizer) Export(ctx context.Context, req Request) (Result, error) {
	const op = "export"

	profile, ok := o.registry.Lookup(req.Platform)
	if !ok {
		return Result{}, convert.NewError(convert.KindUnknownPlatform, op, fmt.Errorf("unknown platform %q", req.Platform))
	}
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = profile.VideoFormats[0]
	} else if !profile.SupportsFormat(format) {
		return Result{}, convert.NewError(convert.KindUnsupportedFormatForPlatform, op,
			fmt.Errorf("%s does not accept %s (supported: %s)", profile.Platform, format, strings.Join(profile.VideoFormats, ", ")))
	}
	aspect := profile.PreferredAspect()

	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = filepath.Dir(req.ClipPath)
	}
	base := strings.TrimSuffix(filepath.Base(req.ClipPath), filepath.Ext(req.ClipPath))
	output := filepath.Join(outputDir, fmt.Sprintf("%s_%s.%s", base, textutil.SanitizeToken(string(profile.Platform)), format))

	logger := o.logger.With(
		logging.String("platform", string(profile.Platform)),
		logging.String("format", format),
		logging.String("aspect_ratio", aspect),
	)
	converted, err := o.converter.Convert(ctx, convert.Options{
		InputPath:   req.ClipPath,
		OutputPath:  output,
		Format:      format,
		Quality:     req.Quality,
		AspectRatio: aspect,
		Watermark:   req.Watermark,
		MaxSizeMB:   profile.MaxVideoSizeMB,
		MaxDuration: profile.MaxVideoDurationSeconds,
	})
	if err != nil {
		logging.WarnWithContext(logger, "platform export failed", "export_failed",
			logging.String("error_code", string(convert.KindOf(err))),
			logging.String(logging.FieldImpact, "no rendition for this platform"),
			logging.Error(err),
		)
		return Result{}, err
	}
	logger.Info("platform export complete",
		logging.String(logging.FieldEventType, "export_complete"),
		logging.String("output", converted.OutputPath),
		logging.Int64("size_bytes", converted.FileSize),
	)
	return Result{Platform: profile.Platform, Format: format, AspectRatio: aspect, Result: converted}, nil
}

// ExportAll renders base for every platform, at most the configured number at
// a time. One platform failing does not stop the others; the returned error
// joins every failure.
func (o *Optimizer) ExportAll(ctx context.Context, base Request, platforms []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(platforms))
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, platform := range platforms {
		g.Go(func() error {
			req := base
			req.Platform = platform
			outcomes[i].Platform = NormalizePlatform(platform)
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			result, err := o.Export(ctx, req)
			outcomes[i].Result = result
			outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", outcome.Platform, outcome.Err))
		}
	}
	return outcomes, errors.Join(errs...)
}
