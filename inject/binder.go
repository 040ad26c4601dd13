package inject

import (
	"fmt"

	"github.com/GoCodeAlone/servicetest/logging"
)

type binder struct {
	inj       *Injector
	requested []any
	hooks     []func(*Injector) error
}

func (b *binder) BindInstance(key string, instance any) error {
	if instance == nil {
		return fmt.Errorf("%w: %s", ErrNilInstance, key)
	}
	return b.inj.bind(key, &binding{key: key, instance: instance, resolved: true})
}

func (b *binder) BindProvider(key string, provider Provider) error {
	if provider == nil {
		return fmt.Errorf("%w: %s", ErrNilProvider, key)
	}
	return b.inj.bind(key, &binding{key: key, provider: provider})
}

func (b *binder) Install(m Module) error {
	if m == nil {
		return nil
	}
	return m.Configure(b)
}

func (b *binder) RequestInjection(target any) {
	b.requested = append(b.requested, target)
}

func (b *binder) OnCreate(hook func(*Injector) error) {
	if hook != nil {
		b.hooks = append(b.hooks, hook)
	}
}

func (b *binder) Logger() logging.Logger {
	return b.inj.logger
}
