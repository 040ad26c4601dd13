package servicetest

import (
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// ServiceDefinition builds the module for one service.
//
// tweaks holds the service configuration tweaks collected from the Rule's
// extensions. The returned module is responsible for binding the service's
// configuration; ServiceDefinitionBuilder does this for you.
type ServiceDefinition interface {
	Module(tweaks config.Layer) (inject.Module, error)
}

// ServiceDefinitionFunc adapts a function to ServiceDefinition.
type ServiceDefinitionFunc func(tweaks config.Layer) (inject.Module, error)

// Module implements ServiceDefinition.
func (f ServiceDefinitionFunc) Module(tweaks config.Layer) (inject.Module, error) {
	return f(tweaks)
}
