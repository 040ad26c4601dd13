// Package inject is a small string-keyed dependency injection container.
//
// Modules contribute bindings to a Binder; New installs them and eagerly
// provisions every binding, so a misconfigured container fails at creation
// rather than on first use:
//
//	inj, err := inject.New(logger,
//		inject.ModuleFunc(func(b inject.Binder) error {
//			return b.BindInstance("greeting", "hello")
//		}),
//	)
//	greeting, err := inject.Get[string](inj, "greeting")
//
// Once created an Injector is immutable and safe for concurrent reads.
package inject

import "github.com/GoCodeAlone/servicetest/logging"

// Module contributes bindings to a container.
type Module interface {
	Configure(b Binder) error
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(b Binder) error

// Configure implements Module.
func (f ModuleFunc) Configure(b Binder) error {
	return f(b)
}

// EmptyModule binds nothing.
var EmptyModule Module = ModuleFunc(func(Binder) error { return nil })

// Modules combines modules into one that installs each in order. nil
// entries are skipped.
func Modules(modules ...Module) Module {
	return ModuleFunc(func(b Binder) error {
		for _, m := range modules {
			if m == nil {
				continue
			}
			if err := b.Install(m); err != nil {
				return err
			}
		}
		return nil
	})
}

// Provider builds the instance for one binding. It may look up other
// bindings through inj; those are provisioned first.
type Provider func(inj *Injector) (any, error)

// Binder collects bindings while modules are installed.
type Binder interface {
	// BindInstance binds key to an already constructed value.
	BindInstance(key string, instance any) error

	// BindProvider binds key to a provider run once during container creation.
	BindProvider(key string, provider Provider) error

	// Install configures m against this binder.
	Install(m Module) error

	// RequestInjection asks for target's `inject` tagged fields to be filled
	// once the container is created.
	RequestInjection(target any)

	// OnCreate registers a hook run after every binding is provisioned.
	OnCreate(hook func(inj *Injector) error)

	// Logger returns the container logger.
	Logger() logging.Logger
}
