package scheduler

import (
	"errors"
)

var (
	ErrJobAlreadyExists = errors.New("job already exists")
	ErrJobNotFound      = errors.New("job not found")

	// ErrInvalidJob is returned by ScheduleJob for a job without a run time
	// or schedule, or with an unparsable cron expression.
	ErrInvalidJob = errors.New("invalid job")

	// ErrShutdownTimeout is returned by Stop when running jobs outlive the
	// stop context.
	ErrShutdownTimeout = errors.New("scheduler shutdown timed out")
)
