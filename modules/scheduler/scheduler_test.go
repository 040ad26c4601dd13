package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/lifecycle"
	"github.com/GoCodeAlone/servicetest/logging"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
)

func newStartedScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	s := NewScheduler(cfg, WithLogger(logging.NewTesting(t)))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return s
}

func fastConfig(poolSize int) Config {
	cfg := DefaultConfig()
	cfg.PoolSize = poolSize
	cfg.CheckInterval = 10 * time.Millisecond
	return cfg
}

func waitForStatus(t *testing.T, s *Scheduler, id string, want JobStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := s.GetJob(id)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestModuleIsRegistered(t *testing.T) {
	_, ok := servicetest.DefaultModuleResolver().Lookup(ModuleName)
	assert.True(t, ok)
}

func TestPoolSizeBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
	}{
		{name: "single worker", poolSize: 1},
		{name: "two workers", poolSize: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStartedScheduler(t, fastConfig(tt.poolSize))

			var running, peak atomic.Int32
			release := make(chan struct{})
			job := func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				defer running.Add(-1)
				select {
				case <-release:
				case <-ctx.Done():
				}
				return nil
			}

			var ids []string
			for i := 0; i < 5; i++ {
				id, err := s.RunOnce("blocking", job)
				require.NoError(t, err)
				ids = append(ids, id)
			}

			require.Eventually(t, func() bool {
				return running.Load() == int32(tt.poolSize)
			}, 2*time.Second, 5*time.Millisecond)
			// give the dispatcher a few more ticks to overshoot if it could
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, int32(tt.poolSize), peak.Load())

			close(release)
			for _, id := range ids {
				waitForStatus(t, s, id, JobStatusCompleted)
			}
			assert.Equal(t, int32(tt.poolSize), peak.Load())
		})
	}
}

func TestRunOnceRecordsHistory(t *testing.T) {
	s := newStartedScheduler(t, fastConfig(1))

	okID, err := s.RunOnce("ok", func(context.Context) error { return nil })
	require.NoError(t, err)
	failID, err := s.RunOnce("fail", func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)
	panicID, err := s.RunOnce("panic", func(context.Context) error { panic("oops") })
	require.NoError(t, err)

	waitForStatus(t, s, okID, JobStatusCompleted)
	waitForStatus(t, s, failID, JobStatusFailed)
	waitForStatus(t, s, panicID, JobStatusFailed)

	history, err := s.GetJobHistory(failID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, JobStatusFailed, history[0].Status)
	assert.Equal(t, "boom", history[0].Error)
	assert.False(t, history[0].EndTime.Before(history[0].StartTime))

	history, err = s.GetJobHistory(panicID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Error, "job panicked: oops")

	jobs := s.ListJobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"ok", "fail", "panic"}, []string{jobs[0].Name, jobs[1].Name, jobs[2].Name})
}

func TestJobsScheduledBeforeStartRunAfterStart(t *testing.T) {
	s := NewScheduler(fastConfig(1))
	var ran atomic.Bool
	id, err := s.RunOnce("early", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	assert.False(t, ran.Load())

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	waitForStatus(t, s, id, JobStatusCompleted)
	assert.True(t, ran.Load())
}

func TestScheduleJobValidation(t *testing.T) {
	s := NewScheduler(fastConfig(1))

	tests := []struct {
		name string
		job  Job
	}{
		{name: "no run time or schedule", job: Job{Name: "empty"}},
		{name: "recurring without schedule", job: Job{Name: "r", RunAt: time.Now(), IsRecurring: true}},
		{name: "bad cron expression", job: Job{Name: "r", Schedule: "every tuesday", IsRecurring: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ScheduleJob(tt.job)
			assert.ErrorIs(t, err, ErrInvalidJob)
		})
	}

	_, err := s.ScheduleJob(Job{ID: "fixed", RunAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.ScheduleJob(Job{ID: "fixed", RunAt: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, ErrJobAlreadyExists)

	_, err = s.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = s.GetJobHistory("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.CancelJob("missing"), ErrJobNotFound)
}

func TestRecurringJob(t *testing.T) {
	s := newStartedScheduler(t, fastConfig(1))

	var mu sync.Mutex
	runs := 0
	id, err := s.ScheduleRecurring("tick", "@every 1s", func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		return nil
	})
	require.NoError(t, err)

	job, err := s.GetJob(id)
	require.NoError(t, err)
	require.NotNil(t, job.NextRun)
	assert.True(t, job.IsRecurring)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 1
	}, 3*time.Second, 20*time.Millisecond)

	waitForStatus(t, s, id, JobStatusPending)
	require.NoError(t, s.CancelJob(id))
	job, err = s.GetJob(id)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCancelled, job.Status)
}

func TestCancelledJobDoesNotRun(t *testing.T) {
	s := NewScheduler(fastConfig(1))
	var ran atomic.Bool
	id, err := s.RunOnce("cancelled", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.CancelJob(id))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, ran.Load())
}

func TestStopCancelsRunningJobs(t *testing.T) {
	s := NewScheduler(fastConfig(1))
	require.NoError(t, s.Start(context.Background()))

	started := make(chan struct{})
	var sawCancel atomic.Bool
	_, err := s.RunOnce("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, sawCancel.Load())
	// stopping twice is a no-op
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopTimesOut(t *testing.T) {
	cfg := fastConfig(1)
	cfg.ShutdownTimeout = 20 * time.Millisecond
	s := NewScheduler(cfg)
	require.NoError(t, s.Start(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	_, err := s.RunOnce("stubborn", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)

	<-started
	assert.ErrorIs(t, s.Stop(context.Background()), ErrShutdownTimeout)
}

func TestModuleWithLifecycleAndMetrics(t *testing.T) {
	cfg := config.FromMap(map[string]string{
		"scheduler.pool-size":      "1",
		"scheduler.check-interval": "10ms",
	})
	sm, err := NewModule(cfg)
	require.NoError(t, err)
	mm, err := metrics.NewModule(cfg)
	require.NoError(t, err)

	inj, err := inject.New(logging.NewTesting(t), inject.LifecycleModule(), mm, sm)
	require.NoError(t, err)
	lc, ok := inj.Lifecycle()
	require.True(t, ok)
	require.NoError(t, lc.ExecuteTo(context.Background(), lifecycle.AnnounceStage))

	s, err := inject.Get[*Scheduler](inj, SchedulerKey)
	require.NoError(t, err)
	assert.Equal(t, 1, s.PoolSize())

	id, err := s.RunOnce("counted", func(context.Context) error { return nil })
	require.NoError(t, err)
	waitForStatus(t, s, id, JobStatusCompleted)

	reg, err := inject.Get[*prometheus.Registry](inj, metrics.RegistryKey)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(reg, "scheduler_job_executions_total")
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, lc.ExecuteTo(context.Background(), lifecycle.StopStage))
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{name: "zero pool", values: map[string]string{"scheduler.pool-size": "0"}},
		{name: "zero queue", values: map[string]string{"scheduler.queue-size": "0"}},
		{name: "zero interval", values: map[string]string{"scheduler.check-interval": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModule(config.FromMap(tt.values))
			assert.ErrorIs(t, err, config.ErrBind)
		})
	}
}
