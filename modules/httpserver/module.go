// Package httpserver provides an HTTP server module for service containers.
//
// Importing the package registers the "httpserver" module type, installed
// into every service by servicetest.HTTPServerTweak:
//
//	import _ "github.com/GoCodeAlone/servicetest/modules/httpserver"
//
// The module binds a chi router under RouterKey for the service's own
// modules to add routes to, and a *Server under ServerKey. With
// inject.LifecycleModule installed the server starts listening on the start
// stage, on the port given by httpserver.port (0 in tests, so each service
// gets a free port), and shuts down on the stop stage. Tests find the address
// through the Rule:
//
//	srv, err := servicetest.Expose[*httpserver.Server](rule, "orders", httpserver.ServerKey)
//	resp, err := http.Get(srv.URL() + "/orders")
//
// When the container also has the metrics module, requests are counted in
// the service's registry and, if export is enabled, served on /metrics.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/modules/metrics"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.HTTPServerModuleName

// Binding keys
const (
	ServerKey = "httpserver"
	RouterKey = "httpserver.router"
)

// MetricsPath is where the metrics handler is mounted when export is enabled.
const MetricsPath = "/metrics"

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// NewModule returns the HTTP server module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	c := DefaultConfig()
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("httpserver config: %w", err)
	}

	return inject.ModuleFunc(func(b inject.Binder) error {
		if err := b.BindInstance(RouterKey, chi.NewRouter()); err != nil {
			return err
		}
		return b.BindProvider(ServerKey, func(inj *inject.Injector) (any, error) {
			router, err := inject.Get[chi.Router](inj, RouterKey)
			if err != nil {
				return nil, err
			}
			handler, err := rootHandler(inj, router)
			if err != nil {
				return nil, err
			}
			return NewServer(c, handler, inj.Logger()), nil
		})
	}), nil
}

// rootHandler wraps the service router with recovery, the optional metrics
// endpoint and request counting.
func rootHandler(inj *inject.Injector, router chi.Router) (http.Handler, error) {
	root := chi.NewRouter()
	root.Use(middleware.RequestID)
	root.Use(middleware.Recoverer)

	if inj.Has(metrics.HandlerKey) {
		h, err := inject.Get[http.Handler](inj, metrics.HandlerKey)
		if err != nil {
			return nil, err
		}
		root.Method(http.MethodGet, MetricsPath, h)
	}
	root.Mount("/", router)

	if !inj.Has(metrics.RegistryKey) {
		return root, nil
	}
	reg, err := inject.Get[*prometheus.Registry](inj, metrics.RegistryKey)
	if err != nil {
		return nil, err
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served, by status code and method.",
	}, []string{"code", "method"})
	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("registering request counter: %w", err)
		}
		requests = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return promhttp.InstrumentHandlerCounter(requests, root), nil
}
