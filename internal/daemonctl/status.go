package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
)

// StatusLine is one labelled row of `clipforge daemon status` output.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// Snapshot is the status view rendered by the CLI. Daemon is nil when the
// API did not answer; queue counts then come from the database directly.
type Snapshot struct {
	Running           bool
	Daemon            *api.DaemonStatus
	QueueStats        map[string]int
	Dependencies      []api.DependencyStatus
	DependencySummary DependencySummary
	SystemChecks      []StatusLine
	PathChecks        []StatusLine
}

// BuildStatusSnapshot collects daemon status and applies offline fallbacks
// for queue stats and dependencies.
func BuildStatusSnapshot(ctx context.Context, baseURL string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{QueueStats: map[string]int{}}

	client := api.NewClient(baseURL, 3*time.Second)
	if status, err := client.Status(ctx); err == nil && status != nil {
		snap.Running = status.Running
		snap.Daemon = status
		snap.Dependencies = status.Dependencies
		for k, v := range status.Workflow.QueueStats {
			snap.QueueStats[k] = v
		}
	}

	if snap.Daemon == nil {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if store, err := queue.Open(cfg); err == nil {
			if stats, err := store.Stats(queryCtx); err == nil {
				snap.QueueStats = api.FromQueueStats(stats)
			}
			_ = store.Close()
		}
	}
	if len(snap.Dependencies) == 0 {
		snap.Dependencies = ResolveDependencies(ctx, cfg)
	}

	snap.SystemChecks = BuildSystemChecks(cfg, snap.Daemon)
	snap.PathChecks = BuildPathChecks(cfg)
	snap.DependencySummary = BuildDependencySummary(snap.Dependencies)
	return snap, nil
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(ctx context.Context, cfg *config.Config) []api.DependencyStatus {
	if cfg == nil {
		return nil
	}
	return api.FromDependencies(preflight.CheckSystemDeps(ctx, cfg))
}

// DependencySeverity classifies a dependency row for display.
func DependencySeverity(dep api.DependencyStatus) string {
	switch {
	case dep.Available:
		return "ok"
	case dep.Optional:
		return "warn"
	default:
		return "error"
	}
}

// BuildSystemChecks resolves status lines that combine runtime state and
// config checks.
func BuildSystemChecks(cfg *config.Config, status *api.DaemonStatus) []StatusLine {
	lines := make([]StatusLine, 0, 6)
	if status == nil || !status.Running {
		lines = append(lines, StatusLine{Label: "Clipforge", Severity: "warn", Detail: "Not running (run `clipforge daemon start`)"})
	} else {
		lines = append(lines, StatusLine{Label: "Clipforge", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d, %s)", status.PID, status.APIAddress)})
		if status.Workflow.Running {
			lines = append(lines, StatusLine{Label: "Processor", Severity: "ok", Detail: fmt.Sprintf("%d workers", status.Workflow.Workers)})
		} else {
			lines = append(lines, StatusLine{Label: "Processor", Severity: "warn", Detail: "Stopped"})
		}
		if last := strings.TrimSpace(status.Workflow.LastError); last != "" {
			lines = append(lines, StatusLine{Label: "Last Error", Severity: "warn", Detail: last})
		}
		lines = append(lines, StatusLine{Label: "Recording", Severity: "info", Detail: fmt.Sprintf("%d active clips", len(status.ActiveClips))})
	}

	if strings.TrimSpace(cfg.Notifications.WebhookURL) != "" {
		lines = append(lines, StatusLine{Label: "Webhook", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Webhook", Severity: "info", Detail: "Not configured"})
	}

	switch {
	case !cfg.Capture.MonitorEnabled || strings.TrimSpace(cfg.Capture.Device) == "":
		lines = append(lines, StatusLine{Label: "Device Monitor", Severity: "info", Detail: "Disabled"})
	default:
		lines = append(lines, StatusLine{Label: "Device Monitor", Severity: "ok", Detail: cfg.Capture.Device})
	}

	if cfg.Maintenance.RetentionDays > 0 {
		lines = append(lines, StatusLine{Label: "Retention", Severity: "ok",
			Detail: fmt.Sprintf("%d days (%s)", cfg.Maintenance.RetentionDays, cfg.Maintenance.Schedule)})
	} else {
		lines = append(lines, StatusLine{Label: "Retention", Severity: "info", Detail: "Keep forever"})
	}
	return lines
}

// BuildPathChecks resolves configured directory readiness.
func BuildPathChecks(cfg *config.Config) []StatusLine {
	lines := make([]StatusLine, 0, 3)
	for _, dir := range []struct {
		label string
		path  string
	}{
		{label: "Data", path: cfg.Paths.DataDir},
		{label: "Output", path: cfg.Paths.OutputDir},
		{label: "Work", path: cfg.Paths.WorkDir},
	} {
		result := preflight.CheckDirectoryAccess(dir.label, dir.path)
		severity := "error"
		if result.Passed {
			severity = "ok"
		}
		lines = append(lines, StatusLine{Label: dir.label, Severity: severity, Detail: result.Detail})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) DependencySummary {
	if len(deps) == 0 {
		return DependencySummary{
			Severity: "info",
			Detail:   "No dependency checks configured",
		}
	}

	missingRequired := 0
	missingOptional := 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}

	missingCount := missingRequired + missingOptional
	available := len(deps) - missingCount
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	if missingCount == 0 {
		detail = fmt.Sprintf("%d/%d available", available, len(deps))
	}

	return DependencySummary{
		Total:           len(deps),
		Available:       available,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Severity:        severity,
		Detail:          detail,
	}
}
