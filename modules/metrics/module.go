// Package metrics provides a per-service prometheus registry.
//
// Importing the package registers the "metrics" module type, which
// servicetest.MetricsTweak installs into every service:
//
//	import _ "github.com/GoCodeAlone/servicetest/modules/metrics"
//
// Each container gets its own *prometheus.Registry under RegistryKey, so
// metrics of two services in the same test never collide. When
// metrics.export.enabled is true an exposition handler is bound under
// HandlerKey, which the httpserver module serves on /metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.MetricsModuleName

// Binding keys
const (
	RegistryKey = "metrics.registry"
	HandlerKey  = "metrics.handler"
)

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// Config defines the configuration for the metrics module, read from the
// "metrics" prefix.
type Config struct {
	Export struct {
		Enabled bool `config:"enabled"`
	} `config:"export"`

	// Runtime registers the Go runtime and process collectors.
	Runtime bool `config:"runtime"`
}

// NewModule returns the metrics module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	var c Config
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("metrics config: %w", err)
	}

	return inject.ModuleFunc(func(b inject.Binder) error {
		reg := NewRegistry(c.Runtime)
		if err := b.BindInstance(RegistryKey, reg); err != nil {
			return err
		}
		if !c.Export.Enabled {
			b.Logger().Debug("Metrics export disabled")
			return nil
		}
		return b.BindInstance(HandlerKey, Handler(reg))
	}), nil
}

// NewRegistry creates an isolated registry, optionally with the Go runtime
// and process collectors.
func NewRegistry(runtime bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if runtime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// Handler returns an exposition handler for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		Registry:      reg,
	})
}
