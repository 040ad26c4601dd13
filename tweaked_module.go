package servicetest

import (
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// TweakedModule is an extension that contributes configuration tweaks and
// modules to the services and the test case of a Rule.
//
// Added to a RuleBuilder through AddTweakedModules, its facets apply to every
// service and to the test case. Added as a named service through
// AddTweakedService, its service facets describe that one service only.
type TweakedModule interface {
	// ServiceConfigTweaks returns values merged into the configuration of
	// service.
	ServiceConfigTweaks(service string) config.Layer

	// TestCaseConfigTweaks returns values merged into the test case
	// configuration.
	TestCaseConfigTweaks() config.Layer

	// ServiceModule returns the module installed into service's container.
	// cfg is the service's fully merged configuration. A nil module installs
	// nothing.
	ServiceModule(service string, cfg *config.Config) (inject.Module, error)

	// TestCaseModule returns the module installed into the test case
	// container.
	TestCaseModule(cfg *config.Config) (inject.Module, error)
}

// BaseTweakedModule contributes nothing. Embed it to implement only the
// facets you need.
type BaseTweakedModule struct{}

func (BaseTweakedModule) ServiceConfigTweaks(string) config.Layer { return nil }

func (BaseTweakedModule) TestCaseConfigTweaks() config.Layer { return nil }

func (BaseTweakedModule) ServiceModule(string, *config.Config) (inject.Module, error) {
	return inject.EmptyModule, nil
}

func (BaseTweakedModule) TestCaseModule(*config.Config) (inject.Module, error) {
	return inject.EmptyModule, nil
}

// TweakedModuleFuncs builds a TweakedModule from optional functions. Nil
// fields contribute nothing.
type TweakedModuleFuncs struct {
	ServiceConfig  func(service string) config.Layer
	TestCaseConfig func() config.Layer
	Service        func(service string, cfg *config.Config) (inject.Module, error)
	TestCase       func(cfg *config.Config) (inject.Module, error)
}

func (f TweakedModuleFuncs) ServiceConfigTweaks(service string) config.Layer {
	if f.ServiceConfig == nil {
		return nil
	}
	return f.ServiceConfig(service)
}

func (f TweakedModuleFuncs) TestCaseConfigTweaks() config.Layer {
	if f.TestCaseConfig == nil {
		return nil
	}
	return f.TestCaseConfig()
}

func (f TweakedModuleFuncs) ServiceModule(service string, cfg *config.Config) (inject.Module, error) {
	if f.Service == nil {
		return inject.EmptyModule, nil
	}
	return f.Service(service, cfg)
}

func (f TweakedModuleFuncs) TestCaseModule(cfg *config.Config) (inject.Module, error) {
	if f.TestCase == nil {
		return inject.EmptyModule, nil
	}
	return f.TestCase(cfg)
}

// ForServiceModule returns a TweakedModule installing the module ref refers
// to into every service, resolved against each service's configuration.
// Refs are resolved with the RuleBuilder's resolver, DefaultModuleResolver
// unless changed with WithModuleResolver.
func ForServiceModule(ref ModuleRef) TweakedModule {
	return moduleRefTweak{ref: ref, service: true}
}

// ForTestCaseModule returns a TweakedModule installing the module ref refers
// to into the test case container.
func ForTestCaseModule(ref ModuleRef) TweakedModule {
	return moduleRefTweak{ref: ref, testCase: true}
}

// moduleRefTweak contributes fixed tweaks and, for the facets enabled with
// service and testCase, the module ref refers to.
type moduleRefTweak struct {
	ref            ModuleRef
	service        bool
	testCase       bool
	safe           bool
	serviceTweaks  config.Layer
	testCaseTweaks config.Layer
	resolver       func() *ModuleResolver
}

func (t moduleRefTweak) ServiceConfigTweaks(string) config.Layer {
	return t.serviceTweaks.Clone()
}

func (t moduleRefTweak) TestCaseConfigTweaks() config.Layer {
	return t.testCaseTweaks.Clone()
}

func (t moduleRefTweak) ServiceModule(_ string, cfg *config.Config) (inject.Module, error) {
	if !t.service {
		return inject.EmptyModule, nil
	}
	return t.resolve(cfg)
}

func (t moduleRefTweak) TestCaseModule(cfg *config.Config) (inject.Module, error) {
	if !t.testCase {
		return inject.EmptyModule, nil
	}
	return t.resolve(cfg)
}

func (t moduleRefTweak) resolve(cfg *config.Config) (inject.Module, error) {
	r := DefaultModuleResolver()
	if t.resolver != nil {
		r = t.resolver()
	}
	if t.safe {
		return r.ResolveSafe(t.ref, cfg), nil
	}
	return r.Resolve(t.ref, cfg)
}

func (t moduleRefTweak) withResolver(r func() *ModuleResolver) TweakedModule {
	if t.resolver == nil {
		t.resolver = r
	}
	return t
}
