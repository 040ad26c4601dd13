package inject

import (
	"github.com/GoCodeAlone/servicetest/lifecycle"
)

// LifecycleKey is the binding key of the container's *lifecycle.Lifecycle.
const LifecycleKey = "lifecycle"

// LifecycleModule binds a *lifecycle.Lifecycle under LifecycleKey and, once
// the container is created, registers every provisioned value implementing
// lifecycle.Startable or lifecycle.Stoppable with it. Values are registered in
// provisioning order, so StopStage unwinds them in reverse.
func LifecycleModule() Module {
	return ModuleFunc(func(b Binder) error {
		lc := lifecycle.New(b.Logger())
		if err := b.BindInstance(LifecycleKey, lc); err != nil {
			return err
		}
		b.OnCreate(func(inj *Injector) error {
			return registerComponents(inj, lc)
		})
		return nil
	})
}

func registerComponents(inj *Injector, lc *lifecycle.Lifecycle) error {
	for _, key := range inj.Created() {
		instance, _ := inj.ExistingBinding(key)
		if instance == lc {
			continue
		}
		if s, ok := instance.(lifecycle.Startable); ok {
			if err := lc.AddStartable(key, s); err != nil {
				return err
			}
		}
		if s, ok := instance.(lifecycle.Stoppable); ok {
			if err := lc.AddStoppable(key, s); err != nil {
				return err
			}
		}
	}
	return nil
}

// Lifecycle returns the container's lifecycle when one is bound.
func (inj *Injector) Lifecycle() (*lifecycle.Lifecycle, bool) {
	instance, ok := inj.ExistingBinding(LifecycleKey)
	if !ok {
		return nil, false
	}
	lc, ok := instance.(*lifecycle.Lifecycle)
	return lc, ok
}
