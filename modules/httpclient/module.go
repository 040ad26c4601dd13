// Package httpclient provides the *http.Client that test cases use to call
// the services under test.
//
// Importing the package registers the "httpclient" module type, which
// servicetest.HTTPClientTweak installs into the test-case container:
//
//	type ordersTest struct {
//		Client *http.Client `inject:"httpclient"`
//	}
package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/GoCodeAlone/servicetest"
	"github.com/GoCodeAlone/servicetest/config"
	"github.com/GoCodeAlone/servicetest/inject"
	"github.com/GoCodeAlone/servicetest/logging"
)

// ModuleName is the name of this module for registration and resolution.
const ModuleName = servicetest.HTTPClientModuleName

// ClientKey is the binding key of the *http.Client.
const ClientKey = "httpclient"

func init() {
	servicetest.RegisterModuleType(servicetest.ModuleType{
		Name:       ModuleName,
		WithConfig: NewModule,
	})
}

// NewModule returns the HTTP client module configured from cfg.
func NewModule(cfg *config.Config) (inject.Module, error) {
	c := DefaultConfig()
	if err := cfg.Bind(ModuleName, &c); err != nil {
		return nil, fmt.Errorf("httpclient config: %w", err)
	}
	return inject.ModuleFunc(func(b inject.Binder) error {
		return b.BindInstance(ClientKey, NewClient(c, b.Logger()))
	}), nil
}

// NewClient builds a client with its own transport, so idle connections are
// never shared between test containers.
func NewClient(cfg Config, logger logging.Logger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.TLSTimeout,
		DisableCompression:  cfg.DisableCompression,
		DisableKeepAlives:   cfg.DisableKeepAlives,
	}

	var rt http.RoundTripper = transport
	if cfg.Verbose {
		rt = &loggingTransport{
			Transport:      transport,
			Logger:         logging.OrNop(logger),
			LogHeaders:     cfg.VerboseOptions.LogHeaders,
			LogBody:        cfg.VerboseOptions.LogBody,
			MaxBodyLogSize: cfg.VerboseOptions.MaxBodyLogSize,
		}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.RequestTimeout,
	}
}
