package servicetest

import (
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// MockedService is the older extension interface: tweaks and modules keyed
// by service name, without access to the merged configuration.
//
// Deprecated: implement TweakedModule instead. FromMockedService adapts
// existing implementations.
type MockedService interface {
	ServiceConfigTweaks(service string) config.Layer
	TestCaseConfigTweaks() config.Layer
	ServiceModule(service string) inject.Module
	TestCaseModule() inject.Module
}

// FromMockedService adapts ms to a TweakedModule. It panics when ms is nil.
func FromMockedService(ms MockedService) TweakedModule {
	if ms == nil {
		invalidArgument("mocked service cannot be nil")
	}
	return mockedServiceWrapper{ms: ms}
}

type mockedServiceWrapper struct {
	ms MockedService
}

func (w mockedServiceWrapper) ServiceConfigTweaks(service string) config.Layer {
	return w.ms.ServiceConfigTweaks(service)
}

func (w mockedServiceWrapper) TestCaseConfigTweaks() config.Layer {
	return w.ms.TestCaseConfigTweaks()
}

func (w mockedServiceWrapper) ServiceModule(service string, _ *config.Config) (inject.Module, error) {
	return w.ms.ServiceModule(service), nil
}

func (w mockedServiceWrapper) TestCaseModule(*config.Config) (inject.Module, error) {
	return w.ms.TestCaseModule(), nil
}
