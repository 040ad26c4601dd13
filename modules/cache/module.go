// Package cache gives every service container a Redis backed cache.
//
// Importing the package registers the "cache" module type. With no
// cache.address the module runs an embedded miniredis server per service,
// which servicetest.CacheTweak enforces so tests never reach a shared
// Redis. The *Cache is bound under CacheKey and connects on StartStage.
//
// When the container has the metrics module, lookups are counted in
// cache_requests_total by result.
package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.CacheModuleName

// CacheKey is the binding key of the *Cache.
const CacheKey = "cache"

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// NewModule returns the cache module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	c := DefaultConfig()
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}

	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindProvider(CacheKey, func(inj *inject.Injector) (any, error) {
			var observer Observer
			if inj.Has(metrics.RegistryKey) {
				reg, err := inject.Get[*prometheus.Registry](inj, metrics.RegistryKey)
				if err != nil {
					return nil, err
				}
				requests := prometheus.NewCounterVec(prometheus.CounterOpts{
					Name: "cache_requests_total",
					Help: "Cache lookups, by result.",
				}, []string{"result"})
				if err := reg.Register(requests); err != nil {
					return nil, fmt.Errorf("registering request counter: %w", err)
				}
				observer = func(hit bool) {
					result := "miss"
					if hit {
						result = "hit"
					}
					requests.WithLabelValues(result).Inc()
				}
			}
			return NewCache(c, inj.Logger(), observer), nil
		})
	}), nil
}
