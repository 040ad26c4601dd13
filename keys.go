package servicetest

import (
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

const (
	// ServiceNameKey is bound in every service container to the service's
	// registered name.
	ServiceNameKey = "servicetest.service"

	// ConfigInstanceKey is bound to the container's *config.Config.
	ConfigInstanceKey = "config"
)

// ConfigKey returns the binding key under which ConfigModule exposes the
// single configuration value key.
func ConfigKey(key string) string {
	return "config:" + key
}

// ConfigModule binds cfg under ConfigInstanceKey and every one of its values,
// as a string, under ConfigKey(key).
func ConfigModule(cfg *config.Config) inject.Module {
	if cfg == nil {
		cfg = config.Empty()
	}
	return inject.ModuleFunc(func(b inject.Binder) error {
		if err := b.BindInstance(ConfigInstanceKey, cfg); err != nil {
			return err
		}
		for _, key := range cfg.Keys() {
			value, _ := cfg.Get(key)
			if err := b.BindInstance(ConfigKey(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func serviceNameModule(name string) inject.Module {
	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindInstance(ServiceNameKey, name)
	})
}
