package servicetest

import (
	"fmt"

	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// TweakedModuleRegistry is an ordered list of extensions. Registration order
// decides precedence: for a key tweaked by several extensions, the one added
// last wins.
type TweakedModuleRegistry struct {
	modules []TweakedModule
}

// NewTweakedModuleRegistry creates a registry holding modules in order.
func NewTweakedModuleRegistry(modules ...TweakedModule) *TweakedModuleRegistry {
	r := &TweakedModuleRegistry{}
	r.Add(modules...)
	return r
}

// Add appends modules to the registry. It panics on a nil module.
func (r *TweakedModuleRegistry) Add(modules ...TweakedModule) {
	for i, m := range modules {
		if m == nil {
			invalidArgument("tweaked module %d is nil", i)
		}
		r.modules = append(r.modules, m)
	}
}

// Len returns the number of registered extensions.
func (r *TweakedModuleRegistry) Len() int {
	return len(r.modules)
}

// CollectServiceTweaks merges every extension's service tweaks for service.
func (r *TweakedModuleRegistry) CollectServiceTweaks(service string) config.Layer {
	layers := make([]config.Layer, 0, len(r.modules))
	for _, m := range r.modules {
		layers = append(layers, m.ServiceConfigTweaks(service))
	}
	return config.Merge(layers...)
}

// CollectTestCaseTweaks merges every extension's test case tweaks.
func (r *TweakedModuleRegistry) CollectTestCaseTweaks() config.Layer {
	layers := make([]config.Layer, 0, len(r.modules))
	for _, m := range r.modules {
		layers = append(layers, m.TestCaseConfigTweaks())
	}
	return config.Merge(layers...)
}

// ServiceModules returns every extension's module for service, built with
// the service's final configuration, in registration order.
func (r *TweakedModuleRegistry) ServiceModules(service string, cfg *config.Config) ([]inject.Module, error) {
	out := make([]inject.Module, 0, len(r.modules))
	for i, m := range r.modules {
		mod, err := m.ServiceModule(service, cfg)
		if err != nil {
			return nil, fmt.Errorf("tweaked module %d (%T) for service %s: %w", i, m, service, err)
		}
		out = append(out, mod)
	}
	return out, nil
}

// TestCaseModules returns every extension's test case module in registration
// order.
func (r *TweakedModuleRegistry) TestCaseModules(cfg *config.Config) ([]inject.Module, error) {
	out := make([]inject.Module, 0, len(r.modules))
	for i, m := range r.modules {
		mod, err := m.TestCaseModule(cfg)
		if err != nil {
			return nil, fmt.Errorf("tweaked module %d (%T) for test case: %w", i, m, err)
		}
		out = append(out, mod)
	}
	return out, nil
}
