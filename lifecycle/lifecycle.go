// Package lifecycle drives a service through ordered stages.
//
// A Lifecycle owns a fixed list of stages (StartStage, AnnounceStage and
// StopStage by default). Components register listeners against a stage; when
// the stage executes, its listeners run in registration order, except for
// StopStage which unwinds in reverse so that components stop in the opposite
// order to the one they started in.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/GoCodeAlone/servicetest/logging"
)

// Stage names one step of a Lifecycle.
type Stage string

const (
	StartStage    Stage = "start"
	AnnounceStage Stage = "announce"
	StopStage     Stage = "stop"
)

// DefaultStages is the stage order used when New is called without stages.
var DefaultStages = []Stage{StartStage, AnnounceStage, StopStage}

// Startable is implemented by components that need to run work on StartStage.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable is implemented by components that need to release resources on
// StopStage.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// ListenerFunc is invoked when the stage it was registered for executes.
type ListenerFunc func(ctx context.Context) error

type listener struct {
	name string
	fn   ListenerFunc
}

// Lifecycle is safe for concurrent use, but stages execute one at a time.
type Lifecycle struct {
	mu        sync.Mutex
	logger    logging.Logger
	stages    []Stage
	listeners map[Stage][]listener
	// index into stages of the last executed stage, -1 before any
	reached int
}

// New creates a Lifecycle over stages, or DefaultStages when none are given.
func New(logger logging.Logger, stages ...Stage) *Lifecycle {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	return &Lifecycle{
		logger:    logging.OrNop(logger),
		stages:    slices.Clone(stages),
		listeners: make(map[Stage][]listener, len(stages)),
		reached:   -1,
	}
}

// Stages returns the configured stage order.
func (l *Lifecycle) Stages() []Stage {
	return slices.Clone(l.stages)
}

// Reached returns the last executed stage and false when none has run yet.
func (l *Lifecycle) Reached() (Stage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reached < 0 {
		return "", false
	}
	return l.stages[l.reached], true
}

// AddListener registers fn to run when stage executes. name is used in logs
// and errors.
func (l *Lifecycle) AddListener(stage Stage, name string, fn ListenerFunc) error {
	if fn == nil {
		return fmt.Errorf("%w: listener %q", ErrNilListener, name)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.index(stage) < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	l.listeners[stage] = append(l.listeners[stage], listener{name: name, fn: fn})
	return nil
}

// AddStartable registers c.Start on StartStage.
func (l *Lifecycle) AddStartable(name string, c Startable) error {
	return l.AddListener(StartStage, name, c.Start)
}

// AddStoppable registers c.Stop on StopStage.
func (l *Lifecycle) AddStoppable(name string, c Stoppable) error {
	return l.AddListener(StopStage, name, c.Stop)
}

// Execute runs the listeners of a single stage.
//
// For StopStage every listener runs and the failures are joined; for any
// other stage the first failing listener aborts the stage.
func (l *Lifecycle) Execute(ctx context.Context, stage Stage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.index(stage)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	if err := l.run(ctx, stage); err != nil {
		return err
	}
	l.reached = idx
	return nil
}

// ExecuteTo runs every stage after the last executed one up to and
// including stage. Stages already passed are not repeated.
func (l *Lifecycle) ExecuteTo(ctx context.Context, stage Stage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := l.index(stage)
	if target < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	for i := l.reached + 1; i <= target; i++ {
		if err := l.run(ctx, l.stages[i]); err != nil {
			return err
		}
		l.reached = i
	}
	return nil
}

func (l *Lifecycle) run(ctx context.Context, stage Stage) error {
	listeners := slices.Clone(l.listeners[stage])
	l.logger.Debug("Executing lifecycle stage", "stage", stage, "listeners", len(listeners))

	if stage == StopStage {
		slices.Reverse(listeners)
		var errs []error
		for _, ls := range listeners {
			if err := ls.fn(ctx); err != nil {
				l.logger.Error("Error stopping component", "component", ls.name, "error", err)
				errs = append(errs, fmt.Errorf("%w: %s: %s: %w", ErrListener, stage, ls.name, err))
			}
		}
		return errors.Join(errs...)
	}

	for _, ls := range listeners {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrListener, stage, err)
		}
		if err := ls.fn(ctx); err != nil {
			l.logger.Error("Lifecycle listener failed", "stage", stage, "component", ls.name, "error", err)
			return fmt.Errorf("%w: %s: %s: %w", ErrListener, stage, ls.name, err)
		}
	}
	return nil
}

func (l *Lifecycle) index(stage Stage) int {
	return slices.Index(l.stages, stage)
}
