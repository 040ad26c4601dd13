package servicetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/lifecycle"
)

// State is the position of a Rule in its single-use lifecycle.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	// StateFailed is terminal: Before or After returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type serviceModule struct {
	name   string
	module inject.Module
}

type serviceLifecycle struct {
	name string
	lc   *lifecycle.Lifecycle
}

// Rule starts one container per service plus a test case container before a
// test and stops them afterwards. A Rule is used for exactly one test; build
// it with a RuleBuilder.
type Rule struct {
	logger   Logger
	events   *emitter
	services []serviceModule
	testCase any
	tcModule inject.Module

	stateMu sync.Mutex
	state   State

	// mu guards the fields below. Containers are only ever appended.
	mu            sync.RWMutex
	containers    []*inject.Injector
	lifecycles    []serviceLifecycle
	testInjector  *inject.Injector
	testLifecycle *lifecycle.Lifecycle
}

// State returns the current state.
func (r *Rule) State() State {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

// Services returns the registered service names in start order.
func (r *Rule) Services() []string {
	names := make([]string, len(r.services))
	for i, s := range r.services {
		names[i] = s.name
	}
	return names
}

func (r *Rule) transition(from, to State, err error) error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if r.state != from {
		return fmt.Errorf("%w: state is %s", err, r.state)
	}
	r.state = to
	return nil
}

func (r *Rule) setState(s State) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

// Before creates the service containers in registration order, drives each
// service lifecycle to the announce stage, then creates the test case
// container, injects the test case and announces its lifecycle.
//
// The first error aborts; containers already started are left running.
func (r *Rule) Before(ctx context.Context) error {
	if err := r.transition(StateIdle, StateStarting, ErrRuleAlreadyStarted); err != nil {
		return err
	}
	r.events.emit(ctx, EventTypeRuleStarting, map[string]any{"services": r.Services()})

	if err := r.start(ctx); err != nil {
		r.setState(StateFailed)
		r.logger.Error("Failed to start services", "error", err)
		r.events.emit(ctx, EventTypeRuleFailed, map[string]any{"stage": "before", "error": err.Error()})
		return err
	}

	r.setState(StateRunning)
	r.events.emit(ctx, EventTypeRuleRunning, nil)
	return nil
}

func (r *Rule) start(ctx context.Context) error {
	for _, svc := range r.services {
		inj, err := inject.New(r.logger, serviceNameModule(svc.name), svc.module)
		if err != nil {
			return fmt.Errorf("creating container for service %s: %w", svc.name, err)
		}

		r.mu.Lock()
		r.containers = append(r.containers, inj)
		if lc, ok := inj.Lifecycle(); ok {
			r.lifecycles = append(r.lifecycles, serviceLifecycle{name: svc.name, lc: lc})
		}
		r.mu.Unlock()
		r.logger.Debug("Created service container", "service", svc.name, "bindings", len(inj.Keys()))
	}

	r.mu.RLock()
	lifecycles := append([]serviceLifecycle(nil), r.lifecycles...)
	r.mu.RUnlock()

	for _, sl := range lifecycles {
		r.logger.Info("Starting service", "service", sl.name)
		if err := sl.lc.ExecuteTo(ctx, lifecycle.AnnounceStage); err != nil {
			return fmt.Errorf("starting service %s: %w", sl.name, err)
		}
		r.events.emit(ctx, EventTypeServiceStarted, map[string]any{"service": sl.name})
	}

	testInjector, err := inject.New(r.logger, r.tcModule)
	if err != nil {
		return fmt.Errorf("creating test case container: %w", err)
	}
	r.mu.Lock()
	r.testInjector = testInjector
	r.mu.Unlock()

	if r.testCase != nil {
		if err := testInjector.InjectMembers(r.testCase); err != nil {
			return fmt.Errorf("injecting test case: %w", err)
		}
	}

	if lc, ok := testInjector.Lifecycle(); ok {
		r.mu.Lock()
		r.testLifecycle = lc
		r.mu.Unlock()
		if err := lc.ExecuteTo(ctx, lifecycle.AnnounceStage); err != nil {
			return fmt.Errorf("starting test case: %w", err)
		}
	}
	return nil
}

// After stops the test case lifecycle, then every service lifecycle in the
// order the services were started. The first error aborts; remaining
// services are not stopped.
func (r *Rule) After(ctx context.Context) error {
	if err := r.transition(StateRunning, StateStopping, ErrRuleNotRunning); err != nil {
		return err
	}
	r.events.emit(ctx, EventTypeRuleStopping, nil)

	if err := r.stop(ctx); err != nil {
		r.setState(StateFailed)
		r.logger.Error("Failed to stop services", "error", err)
		r.events.emit(ctx, EventTypeRuleFailed, map[string]any{"stage": "after", "error": err.Error()})
		return err
	}

	r.setState(StateStopped)
	r.events.emit(ctx, EventTypeRuleStopped, nil)
	return nil
}

func (r *Rule) stop(ctx context.Context) error {
	r.mu.RLock()
	testLifecycle := r.testLifecycle
	lifecycles := append([]serviceLifecycle(nil), r.lifecycles...)
	r.mu.RUnlock()

	if testLifecycle != nil {
		if err := testLifecycle.ExecuteTo(ctx, lifecycle.StopStage); err != nil {
			return fmt.Errorf("stopping test case: %w", err)
		}
	}

	// Forward order, matching start order.
	for _, sl := range lifecycles {
		r.logger.Info("Stopping service", "service", sl.name)
		if err := sl.lc.ExecuteTo(ctx, lifecycle.StopStage); err != nil {
			return fmt.Errorf("stopping service %s: %w", sl.name, err)
		}
		r.events.emit(ctx, EventTypeServiceStopped, map[string]any{"service": sl.name})
	}
	return nil
}

// Apply runs Before, failing t on error, and registers After as a cleanup so
// the services stop even when the test body fails.
func (r *Rule) Apply(t testing.TB) *Rule {
	t.Helper()
	if err := r.Before(context.Background()); err != nil {
		t.Fatalf("servicetest: starting services: %v", err)
	}
	t.Cleanup(func() {
		if err := r.After(context.Background()); err != nil {
			t.Errorf("servicetest: stopping services: %v", err)
		}
	})
	return r
}

// ServiceInjector returns the container of service.
func (r *Rule) ServiceInjector(service string) (*inject.Injector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, inj := range r.containers {
		name, err := inject.Get[string](inj, ServiceNameKey)
		if err == nil && name == service {
			return inj, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
}

// ExposeBinding assigns the value bound to key in service's container to
// target, which must be a non-nil pointer. It lets a test inspect the
// internals of a running service.
//
// It fails with ErrUnknownService when no such container exists, which
// includes every call made before Before, and with inject.ErrProvision when
// the key is not bound.
func (r *Rule) ExposeBinding(service, key string, target any) error {
	inj, err := r.ServiceInjector(service)
	if err != nil {
		return err
	}
	return inj.GetInstance(key, target)
}

// Expose returns the value bound to key in service's container as a T.
func Expose[T any](r *Rule, service, key string) (T, error) {
	var out T
	err := r.ExposeBinding(service, key, &out)
	return out, err
}

// TestCaseInjector returns the test case container once Before has created
// it.
func (r *Rule) TestCaseInjector() (*inject.Injector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.testInjector, r.testInjector != nil
}
