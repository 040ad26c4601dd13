// Package scheduler provides a job scheduler for service containers.
//
// Importing the package registers the "scheduler" module type. The
// scheduler is bound under SchedulerKey, starts with the container's
// lifecycle and runs jobs on scheduler.pool-size workers, which
// servicetest.SchedulerTweak pins to 1 so jobs in tests run one at a time.
//
// When the container has the metrics module, executions are counted in
// scheduler_job_executions_total by status.
package scheduler

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.SchedulerModuleName

// SchedulerKey is the binding key of the *Scheduler.
const SchedulerKey = "scheduler"

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// NewModule returns the scheduler module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	c := DefaultConfig()
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}

	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindProvider(SchedulerKey, func(inj *inject.Injector) (any, error) {
			opts := []SchedulerOption{WithLogger(inj.Logger())}
			if inj.Has(metrics.RegistryKey) {
				reg, err := inject.Get[*prometheus.Registry](inj, metrics.RegistryKey)
				if err != nil {
					return nil, err
				}
				executions := prometheus.NewCounterVec(prometheus.CounterOpts{
					Name: "scheduler_job_executions_total",
					Help: "Job executions, by final status.",
				}, []string{"status"})
				if err := reg.Register(executions); err != nil {
					return nil, fmt.Errorf("registering execution counter: %w", err)
				}
				opts = append(opts, WithExecutionObserver(func(_ Job, e JobExecution) {
					executions.WithLabelValues(string(e.Status)).Inc()
				}))
			}
			return NewScheduler(c, opts...), nil
		})
	}), nil
}
