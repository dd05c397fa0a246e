package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/tube-comb/app/database"
)

type Sweeper interface {
	Sweep() int
}

// CacheSweepJob drops expired cache entries that were never read again.
type CacheSweepJob struct {
	cache Sweeper
}

func NewCacheSweepJob(cache Sweeper) *CacheSweepJob {
	return &CacheSweepJob{cache: cache}
}

func (j *CacheSweepJob) Name() string { return "cache_sweep" }

func (j *CacheSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if removed := j.cache.Sweep(); removed > 0 {
		slog.Debug("Swept expired cache entries", "component", "tasks", "removed", removed)
	}
	return nil
}

// LogCleanupJob enforces log retention.
type LogCleanupJob struct {
	logs database.LogRepository
	days int
}

func NewLogCleanupJob(logs database.LogRepository, days int) *LogCleanupJob {
	return &LogCleanupJob{logs: logs, days: days}
}

func (j *LogCleanupJob) Name() string { return "log_cleanup" }

func (j *LogCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := j.logs.CleanupLogs(j.days)
	if err != nil {
		return err
	}
	if result.DeletedLogs > 0 {
		slog.Info("Removed old logs", "component", "tasks", "deleted", result.DeletedLogs, "days_kept", result.DaysKept)
	}
	return nil
}
