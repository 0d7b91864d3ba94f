package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow)
// plus descriptors such as @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return sched, nil
}

// Store is the queue surface the sweeper needs.
type Store interface {
	PurgeCompletedBefore(ctx context.Context, cutoff time.Time) ([]*queue.Clip, error)
}

// Report summarizes one sweep.
type Report struct {
	Cutoff       time.Time
	Purged       int
	FilesRemoved int
	FileErrors   int
}

// Sweeper deletes expired clips on a schedule.
type Sweeper struct {
	store       Store
	logger      *slog.Logger
	schedule    string
	retention   time.Duration
	deleteFiles bool
	now         func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New builds a sweeper from the maintenance config section. A retention of
// zero days disables the sweep; New then returns nil, which is safe to Start
// and Stop.
func New(cfg *config.Config, store Store, logger *slog.Logger) *Sweeper {
	if cfg == nil || cfg.Maintenance.RetentionDays <= 0 {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store:       store,
		logger:      logging.NewComponentLogger(logger, "maintenance"),
		schedule:    cfg.Maintenance.Schedule,
		retention:   time.Duration(cfg.Maintenance.RetentionDays) * 24 * time.Hour,
		deleteFiles: cfg.Maintenance.DeleteFiles,
		now:         time.Now,
	}
}

// Start registers the sweep with the cron scheduler. ctx bounds every run.
func (s *Sweeper) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	sched, err := ParseSchedule(s.schedule)
	if err != nil {
		return err
	}
	c := cron.New(cron.WithParser(cronParser))
	c.Schedule(sched, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.RunOnce(ctx); err != nil {
			logging.ErrorWithContext(s.logger, "retention sweep failed", "maintenance_failed",
				logging.String(logging.FieldImpact, "expired clips kept until the next run"),
				logging.Error(err),
			)
		}
	}))
	c.Start()
	s.cron = c

	s.logger.Info("maintenance scheduled",
		logging.String(logging.FieldEventType, "maintenance_scheduled"),
		logging.String("schedule", s.schedule),
		logging.Duration("retention", s.retention),
		logging.String("next_run", sched.Next(s.now()).Format(time.RFC3339)),
	)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// RunOnce purges COMPLETED items last updated before now minus the retention
// window and removes their files when configured to.
func (s *Sweeper) RunOnce(ctx context.Context) (Report, error) {
	report := Report{Cutoff: s.now().Add(-s.retention)}
	clips, err := s.store.PurgeCompletedBefore(ctx, report.Cutoff)
	if err != nil {
		return report, err
	}
	report.Purged = len(clips)
	if s.deleteFiles {
		for _, clip := range clips {
			for _, path := range []string{clip.Path, clip.ThumbnailPath} {
				removed, err := removeFile(path)
				if err != nil {
					report.FileErrors++
					logging.WarnWithContext(s.logger, "failed to remove expired clip file", "maintenance_file_failed",
						logging.String("path", path),
						logging.String("clip_id", clip.ID),
						logging.String(logging.FieldImpact, "file remains on disk"),
						logging.Error(err),
					)
					continue
				}
				if removed {
					report.FilesRemoved++
				}
			}
		}
	}
	s.logger.Info("retention sweep complete",
		logging.String(logging.FieldEventType, "maintenance_complete"),
		logging.String("cutoff", report.Cutoff.Format(time.RFC3339)),
		logging.Int("purged", report.Purged),
		logging.Int("files_removed", report.FilesRemoved),
	)
	return report, nil
}

func removeFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
