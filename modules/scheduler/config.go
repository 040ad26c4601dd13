package scheduler

import "time"

// Config defines the configuration for the scheduler module, read from the
// "scheduler" prefix. Test harnesses pin pool-size to 1 so jobs run one at a
// time.
type Config struct {
	// PoolSize is the number of worker goroutines executing jobs.
	PoolSize int `config:"pool-size" validate:"min=1"`

	// QueueSize is the maximum number of jobs waiting for a worker.
	QueueSize int `config:"queue-size" validate:"min=1"`

	// CheckInterval is how often one-time jobs are checked for being due.
	CheckInterval time.Duration `config:"check-interval" validate:"gt=0"`

	// ShutdownTimeout bounds how long Stop waits for running jobs.
	ShutdownTimeout time.Duration `config:"shutdown-timeout" validate:"gt=0"`
}

// DefaultConfig returns the values used for keys missing from the
// configuration.
func DefaultConfig() Config {
	return Config{
		PoolSize:        5,
		QueueSize:       100,
		CheckInterval:   time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
