package preflight

import (
	"context"

	"clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the free space below which the output and work
// directories are reported as failing.
const minFreeBytes = 1 << 30

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes),
		CheckFreeSpace("Work free space", cfg.Paths.WorkDir, minFreeBytes),
	}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional && status.Available {
			continue
		}
		detail := status.Command
		if status.Detail != "" {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available || status.Optional,
			Detail: detail,
		})
	}
	return results
}
