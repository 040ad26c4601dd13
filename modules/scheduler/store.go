package scheduler

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// memoryStore keeps jobs and their execution history for the lifetime of
// one container.
type memoryStore struct {
	mu         sync.RWMutex
	jobs       map[string]Job
	order      []string
	executions map[string][]JobExecution
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		jobs:       make(map[string]Job),
		executions: make(map[string][]JobExecution),
	}
}

func (s *memoryStore) addJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, job.ID)
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return nil
}

func (s *memoryStore) updateJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *memoryStore) getJob(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// getJobs returns every job in scheduling order.
func (s *memoryStore) getJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, s.jobs[id])
	}
	return jobs
}

// claimDueJobs marks pending one-time jobs due before t as queued and
// returns them, so a job is handed to the worker pool at most once.
func (s *memoryStore) claimDueJobs(t time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for _, id := range s.order {
		job := s.jobs[id]
		if job.IsRecurring || job.Status != JobStatusPending || job.NextRun == nil || job.NextRun.After(t) {
			continue
		}
		job.Status = JobStatusQueued
		s.jobs[id] = job
		due = append(due, job)
	}
	return due
}

// claimJob marks a single job as queued unless it is already queued,
// running or cancelled.
func (s *memoryStore) claimJob(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[id]
	if !exists {
		return Job{}, false
	}
	switch job.Status {
	case JobStatusQueued, JobStatusRunning, JobStatusCancelled:
		return Job{}, false
	}
	job.Status = JobStatusQueued
	s.jobs[id] = job
	return job, true
}

func (s *memoryStore) addExecution(e JobExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[e.JobID] = append(s.executions[e.JobID], e)
}

// updateExecution replaces the latest execution of the job.
func (s *memoryStore) updateExecution(e JobExecution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.executions[e.JobID]
	if len(history) == 0 {
		s.executions[e.JobID] = []JobExecution{e}
		return
	}
	history[len(history)-1] = e
}

func (s *memoryStore) getExecutions(id string) ([]JobExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, exists := s.jobs[id]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return slices.Clone(s.executions[id]), nil
}
