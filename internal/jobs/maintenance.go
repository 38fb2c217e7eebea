package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// CachePurgeJobName is the name of the building cache purge job
	CachePurgeJobName = "building-cache-purge"
	// StaleSweepJobName is the name of the stale submission sweep job
	StaleSweepJobName = "stale-submission-sweep"

	sweepTimeout = 2 * time.Minute
)

// CachePurger drops every cached building record and reports how many were held.
// Registry data changes rarely, but a daily purge keeps corrections visible.
type CachePurger interface {
	Clear() int
}

// SubmissionSweeper fails submissions that never recorded an outcome.
type SubmissionSweeper interface {
	SweepStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RegisterCachePurgeJob schedules the building cache purge.
func RegisterCachePurgeJob(scheduler *Scheduler, cache CachePurger, logger *zap.Logger, cronExpr string) error {
	return scheduler.AddJob(CachePurgeJobName, cronExpr, func(context.Context) {
		n := cache.Clear()
		logger.Info("building cache purged", zap.Int("entries", n))
	})
}

// StaleSweepJob marks abandoned submissions as failed
type StaleSweepJob struct {
	sweeper    SubmissionSweeper
	staleAfter time.Duration
	logger     *zap.Logger
	timeout    time.Duration
}

// NewStaleSweepJob creates a sweep job for submissions older than staleAfter
func NewStaleSweepJob(sweeper SubmissionSweeper, staleAfter time.Duration, logger *zap.Logger) *StaleSweepJob {
	return &StaleSweepJob{
		sweeper:    sweeper,
		staleAfter: staleAfter,
		logger:     logger,
		timeout:    sweepTimeout,
	}
}

// Run executes one sweep, bounded by the job timeout
func (j *StaleSweepJob) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.sweeper.SweepStale(ctx, j.staleAfter)
	if err != nil {
		j.logger.Error("stale submission sweep failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	if n > 0 {
		j.logger.Info("stale submission sweep completed",
			zap.Int64("swept", n),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterStaleSweepJob schedules the stale submission sweep.
// A non-positive staleAfter disables the job.
func RegisterStaleSweepJob(scheduler *Scheduler, sweeper SubmissionSweeper, logger *zap.Logger, cronExpr string, staleAfter time.Duration) error {
	if staleAfter <= 0 {
		logger.Info("stale submission sweep disabled")
		return nil
	}
	job := NewStaleSweepJob(sweeper, staleAfter, logger)
	return scheduler.AddJob(StaleSweepJobName, cronExpr, job.Run)
}
