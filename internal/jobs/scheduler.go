// Package jobs runs the quote service's periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of scheduled work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context)

// JobStatus describes a registered job
type JobStatus struct {
	Name    string    `json:"name"`
	Spec    string    `json:"spec"`
	NextRun time.Time `json:"nextRun"`
	LastRun time.Time `json:"lastRun"`
}

type entry struct {
	id   cron.EntryID
	spec string
}

// Scheduler runs named jobs on cron expressions with a seconds field.
// A job still running when its next tick arrives is skipped, and a panicking
// job is logged instead of crashing the process.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	jobs map[string]entry
}

// NewScheduler creates a stopped scheduler
func NewScheduler(logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger: logger.Named("cron")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]entry),
	}
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler", zap.Int("jobs", len(s.GetJobNames())))
	s.cron.Start()
}

// Stop cancels running jobs' contexts and returns a context that is done
// once they have returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	s.cancel()
	return s.cron.Stop()
}

// AddJob registers job under a unique name. Descriptors like "@every 15m"
// are accepted as well as six-field expressions ("0 0 3 * * *").
func (s *Scheduler) AddJob(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Debug("running scheduled job", zap.String("job_name", name))
		job(s.ctx)
		s.logger.Debug("completed scheduled job",
			zap.String("job_name", name),
			zap.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}

	s.jobs[name] = entry{id: id, spec: spec}
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", spec))
	return nil
}

// RemoveJob unregisters a job by name
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}
	s.cron.Remove(e.id)
	delete(s.jobs, name)

	s.logger.Info("removed scheduled job", zap.String("job_name", name))
	return nil
}

// GetJobNames returns the registered job names, sorted
func (s *Scheduler) GetJobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status reports every job with its next and previous run. NextRun is zero
// until the scheduler has started.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		out = append(out, JobStatus{Name: name, Spec: e.spec, NextRun: ce.Next, LastRun: ce.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger routes cron's own messages through zap
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
