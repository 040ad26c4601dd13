package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/GoCodeAlone/servicetest/logging"
)

// JobFunc defines a function that can be executed as a job
type JobFunc func(ctx context.Context) error

// JobExecution records details about a single execution of a job
type JobExecution struct {
	JobID     string    `json:"jobId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitempty"`
	Status    JobStatus `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Job represents a scheduled job
type Job struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule,omitempty"`
	RunAt       time.Time  `json:"runAt,omitempty"`
	IsRecurring bool       `json:"isRecurring"`
	JobFunc     JobFunc    `json:"-"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Status      JobStatus  `json:"status"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
}

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// ExecutionObserver is notified after every job execution.
type ExecutionObserver func(job Job, execution JobExecution)

// Scheduler runs one-time and cron jobs on a bounded worker pool. At most
// PoolSize jobs execute concurrently.
type Scheduler struct {
	config   Config
	logger   logging.Logger
	store    *memoryStore
	observer ExecutionObserver

	cron        *cron.Cron
	cronEntries map[string]cron.EntryID
	entryMutex  sync.Mutex

	mu       sync.Mutex
	started  bool
	jobQueue chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// SchedulerOption defines a function that can configure a scheduler
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExecutionObserver registers fn to be called after each job execution.
func WithExecutionObserver(fn ExecutionObserver) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// NewScheduler creates a new scheduler. Non-positive config values fall back
// to DefaultConfig.
func NewScheduler(cfg Config, opts ...SchedulerOption) *Scheduler {
	def := DefaultConfig()
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Scheduler{
		config:      cfg,
		logger:      logging.Nop(),
		store:       newMemoryStore(),
		cronEntries: make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{s.logger}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl)))
	return s
}

// PoolSize returns the number of workers.
func (s *Scheduler) PoolSize() int {
	return s.config.PoolSize
}

// Start starts the workers, the cron scheduler and the dispatcher of
// one-time jobs. Starting a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.logger.Info("Starting scheduler", "workers", s.config.PoolSize, "queueSize", s.config.QueueSize)

	// Jobs outlive the start call; only Stop cancels them.
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.jobQueue = make(chan Job, s.config.QueueSize)

	for i := 0; i < s.config.PoolSize; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	for _, job := range s.store.getJobs() {
		if job.IsRecurring && job.Status != JobStatusCancelled {
			s.registerWithCron(job)
		}
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.dispatchPendingJobs()
	return nil
}

// Stop stops scheduling new executions, cancels the context of running jobs
// and waits for the workers, bounded by ctx and the shutdown timeout.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")

	cronCtx := s.cron.Stop()
	s.cancel()

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		<-cronCtx.Done()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	s.logger.Debug("Starting worker", "id", id)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Worker stopping", "id", id)
			return
		case job := <-s.jobQueue:
			s.executeJob(job)
		}
	}
}

func (s *Scheduler) executeJob(job Job) {
	s.logger.Debug("Executing job", "id", job.ID, "name", job.Name)

	job.Status = JobStatusRunning
	job.UpdatedAt = time.Now()
	_ = s.store.updateJob(job)

	execution := JobExecution{
		JobID:     job.ID,
		StartTime: time.Now(),
		Status:    JobStatusRunning,
	}
	s.store.addExecution(execution)

	jobCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	var err error
	if job.JobFunc != nil {
		err = runJob(jobCtx, job.JobFunc)
	}

	now := time.Now()
	execution.EndTime = now
	if err != nil {
		execution.Status = JobStatusFailed
		execution.Error = err.Error()
		s.logger.Error("Job execution failed", "id", job.ID, "name", job.Name, "error", err)
	} else {
		execution.Status = JobStatusCompleted
		s.logger.Debug("Job execution completed", "id", job.ID, "name", job.Name)
	}
	s.store.updateExecution(execution)

	job.LastRun = &now
	job.UpdatedAt = now
	job.Status = execution.Status
	if job.IsRecurring {
		if schedule, perr := cron.ParseStandard(job.Schedule); perr == nil {
			next := schedule.Next(now)
			job.NextRun = &next
		}
		job.Status = JobStatusPending
	}
	// keep cancellation made while the job ran
	if current, gerr := s.store.getJob(job.ID); gerr == nil && current.Status == JobStatusCancelled {
		job.Status = JobStatusCancelled
	}
	_ = s.store.updateJob(job)

	if s.observer != nil {
		s.observer(job, execution)
	}
}

// runJob turns a panicking job into a failed execution.
func runJob(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func (s *Scheduler) dispatchPendingJobs() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		s.checkAndDispatchJobs()
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) checkAndDispatchJobs() {
	for _, job := range s.store.claimDueJobs(time.Now()) {
		s.enqueue(job)
	}
}

// enqueue hands a claimed job to the pool, releasing the claim when the
// queue is full so the next tick retries it.
func (s *Scheduler) enqueue(job Job) {
	select {
	case s.jobQueue <- job:
		s.logger.Debug("Dispatched job", "id", job.ID, "name", job.Name)
	default:
		s.logger.Warn("Job queue is full, job execution delayed", "id", job.ID, "name", job.Name)
		job.Status = JobStatusPending
		_ = s.store.updateJob(job)
	}
}

// ScheduleJob schedules a new job
func (s *Scheduler) ScheduleJob(job Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.Status = JobStatusPending

	if job.RunAt.IsZero() && job.Schedule == "" {
		return "", fmt.Errorf("%w: job must have either RunAt or Schedule specified", ErrInvalidJob)
	}

	if job.IsRecurring {
		if job.Schedule == "" {
			return "", fmt.Errorf("%w: recurring jobs must have a Schedule", ErrInvalidJob)
		}
		schedule, err := cron.ParseStandard(job.Schedule)
		if err != nil {
			return "", fmt.Errorf("%w: invalid cron expression '%s': %w", ErrInvalidJob, job.Schedule, err)
		}
		next := schedule.Next(now)
		job.NextRun = &next
	} else {
		runAt := job.RunAt
		job.NextRun = &runAt
	}

	if err := s.store.addJob(job); err != nil {
		return "", err
	}

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if job.IsRecurring && started {
		s.registerWithCron(job)
	}
	return job.ID, nil
}

// ScheduleRecurring schedules a recurring job using a cron expression
func (s *Scheduler) ScheduleRecurring(name string, cronExpr string, jobFunc JobFunc) (string, error) {
	return s.ScheduleJob(Job{
		Name:        name,
		Schedule:    cronExpr,
		IsRecurring: true,
		JobFunc:     jobFunc,
	})
}

// RunOnce schedules a one-time job to run as soon as a worker is free.
func (s *Scheduler) RunOnce(name string, jobFunc JobFunc) (string, error) {
	return s.ScheduleJob(Job{
		Name:    name,
		RunAt:   time.Now(),
		JobFunc: jobFunc,
	})
}

func (s *Scheduler) registerWithCron(job Job) {
	s.entryMutex.Lock()
	defer s.entryMutex.Unlock()

	if entryID, exists := s.cronEntries[job.ID]; exists {
		s.cron.Remove(entryID)
		delete(s.cronEntries, job.ID)
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		claimed, ok := s.store.claimJob(job.ID)
		if !ok {
			s.logger.Debug("Skipping cron execution", "id", job.ID, "name", job.Name)
			return
		}
		s.enqueue(claimed)
	})
	if err != nil {
		s.logger.Error("Failed to add job to cron scheduler", "id", job.ID, "error", err)
		return
	}
	s.cronEntries[job.ID] = entryID
}

// CancelJob cancels a scheduled job. A running execution is not interrupted.
func (s *Scheduler) CancelJob(jobID string) error {
	job, err := s.store.getJob(jobID)
	if err != nil {
		return err
	}

	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now()
	if err := s.store.updateJob(job); err != nil {
		return err
	}

	if job.IsRecurring {
		s.entryMutex.Lock()
		if entryID, exists := s.cronEntries[jobID]; exists {
			s.cron.Remove(entryID)
			delete(s.cronEntries, jobID)
		}
		s.entryMutex.Unlock()
	}
	return nil
}

// GetJob returns information about a scheduled job
func (s *Scheduler) GetJob(jobID string) (Job, error) {
	return s.store.getJob(jobID)
}

// ListJobs returns all scheduled jobs in scheduling order.
func (s *Scheduler) ListJobs() []Job {
	return s.store.getJobs()
}

// GetJobHistory returns the execution history for a job
func (s *Scheduler) GetJobHistory(jobID string) ([]JobExecution, error) {
	return s.store.getExecutions(jobID)
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
