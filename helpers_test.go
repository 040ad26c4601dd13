package servicetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/servicetest/inject"
)

// journal records lifecycle calls across containers in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// component is a Startable and Stoppable test double.
type component struct {
	name     string
	journal  *journal
	startErr error
	stopErr  error
}

func (c *component) Start(context.Context) error {
	c.journal.add("start:" + c.name)
	return c.startErr
}

func (c *component) Stop(context.Context) error {
	c.journal.add("stop:" + c.name)
	return c.stopErr
}

// bind returns a module binding key to value.
func bind(key string, value any) inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindInstance(key, value)
	})
}

// serviceWith builds a definition installing the lifecycle module and the
// given modules, with values set as explicit config values.
func serviceWith(values map[string]string, modules ...inject.Module) ServiceDefinition {
	b := NewServiceDefinitionBuilder().AddModule(inject.LifecycleModule())
	for _, m := range modules {
		b.AddModule(m)
	}
	for k, v := range values {
		b.SetConfigValue(k, v)
	}
	return b.Build()
}

// eventRecorder is an ObserverFunc collecting event types.
type eventRecorder struct {
	mu     sync.Mutex
	events []CloudEvent
}

func (r *eventRecorder) observe(_ context.Context, event CloudEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type()
	}
	return out
}

// assertInvalidArgument checks that fn panics with an error wrapping
// ErrInvalidArgument.
func assertInvalidArgument(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "got %v", err)
	}()
	fn()
}

// recordingLogger keeps log messages by level.
type recordingLogger struct {
	mu      sync.Mutex
	entries [][2]string
}

func (l *recordingLogger) log(level, msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, [2]string{level, msg})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args...) }

// messages returns the logged messages of level, without their arguments.
func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e[0] == level {
			out = append(out, e[1])
		}
	}
	return out
}
