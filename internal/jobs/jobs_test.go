package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eta-consult/quote-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingPurger struct {
	calls atomic.Int32
}

func (p *countingPurger) Clear() int {
	p.calls.Add(1)
	return 3
}

type fakeSweeper struct {
	olderThan time.Duration
	err       error
	calls     int
}

func (s *fakeSweeper) SweepStale(_ context.Context, olderThan time.Duration) (int64, error) {
	s.calls++
	s.olderThan = olderThan
	return 2, s.err
}

// ============================================================================
// Scheduler
// ============================================================================

func TestScheduler_AddAndRemove(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("a", "0 0 3 * * *", func(context.Context) {}))
	require.NoError(t, s.AddJob("b", "@every 1h", func(context.Context) {}))

	err := s.AddJob("a", "@every 1h", func(context.Context) {})
	assert.ErrorContains(t, err, "already exists")

	assert.Equal(t, []string{"a", "b"}, s.GetJobNames())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetJobNames())
}

func TestScheduler_InvalidExpression(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	err := s.AddJob("bad", "not a cron", func(context.Context) {})
	assert.Error(t, err)
	assert.Empty(t, s.GetJobNames())
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	purger := &countingPurger{}
	require.NoError(t, jobs.RegisterCachePurgeJob(s, purger, zap.NewNop(), "@every 1s"))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return purger.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StatusAndStopCancelsJobs(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	started := make(chan struct{})
	stopped := make(chan struct{})
	require.NoError(t, s.AddJob("blocking", "@every 1s", func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		close(stopped)
	}))

	s.Start()
	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "blocking", status[0].Name)
	assert.Equal(t, "@every 1s", status[0].Spec)
	assert.False(t, status[0].NextRun.IsZero())

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	<-s.Stop().Done()
	select {
	case <-stopped:
	default:
		t.Fatal("stop returned before the job saw cancellation")
	}
}

func TestStaleSweepJob_HonorsCancelledContext(t *testing.T) {
	var seen error
	sweeper := sweepFunc(func(ctx context.Context, _ time.Duration) (int64, error) {
		seen = ctx.Err()
		return 0, ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs.NewStaleSweepJob(sweeper, time.Hour, zap.NewNop()).Run(ctx)
	assert.ErrorIs(t, seen, context.Canceled)
}

type sweepFunc func(ctx context.Context, olderThan time.Duration) (int64, error)

func (f sweepFunc) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return f(ctx, olderThan)
}

// ============================================================================
// Maintenance jobs
// ============================================================================

func TestStaleSweepJob_Run(t *testing.T) {
	sweeper := &fakeSweeper{}
	jobs.NewStaleSweepJob(sweeper, 90*time.Minute, zap.NewNop()).Run(context.Background())
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 90*time.Minute, sweeper.olderThan)

	sweeper.err = errors.New("db down")
	assert.NotPanics(t, func() {
		jobs.NewStaleSweepJob(sweeper, time.Hour, zap.NewNop()).Run(context.Background())
	})
}

func TestRegisterStaleSweepJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, jobs.RegisterStaleSweepJob(s, &fakeSweeper{}, zap.NewNop(), "0 */15 * * * *", 0))
	assert.Empty(t, s.GetJobNames(), "zero threshold disables the sweep")

	require.NoError(t, jobs.RegisterStaleSweepJob(s, &fakeSweeper{}, zap.NewNop(), "0 */15 * * * *", time.Hour))
	assert.Equal(t, []string{jobs.StaleSweepJobName}, s.GetJobNames())
}
