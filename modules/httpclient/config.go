package httpclient

import (
	"time"
)

// Config defines the configuration for the HTTP client module, read from
// the "httpclient" prefix.
//
//	httpclient.request-timeout=5s
//	httpclient.verbose=true
//	httpclient.verbose-options.log-headers=true
type Config struct {
	// MaxIdleConns controls the maximum number of idle (keep-alive) connections across all hosts.
	MaxIdleConns int `config:"max-idle-conns" validate:"min=0"`

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host.
	MaxIdleConnsPerHost int `config:"max-idle-conns-per-host" validate:"min=0"`

	IdleConnTimeout time.Duration `config:"idle-conn-timeout"`

	// RequestTimeout is the maximum time for a request to complete, including
	// reading the response body. 0 means no timeout.
	RequestTimeout time.Duration `config:"request-timeout" validate:"min=0"`

	// TLSTimeout is the maximum time waiting for TLS handshake.
	TLSTimeout time.Duration `config:"tls-timeout"`

	DisableCompression bool `config:"disable-compression"`
	DisableKeepAlives  bool `config:"disable-keep-alives"`

	// Verbose logs every request and response through the container logger.
	Verbose        bool           `config:"verbose"`
	VerboseOptions VerboseOptions `config:"verbose-options"`
}

// VerboseOptions tunes what verbose logging includes.
type VerboseOptions struct {
	LogHeaders bool `config:"log-headers"`
	LogBody    bool `config:"log-body"`

	// MaxBodyLogSize truncates dumped requests and responses; 0 disables truncation.
	MaxBodyLogSize int `config:"max-body-log-size" validate:"min=0"`
}

// DefaultConfig returns the values used for keys missing from the
// configuration.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		RequestTimeout:      30 * time.Second,
		TLSTimeout:          10 * time.Second,
		VerboseOptions: VerboseOptions{
			MaxBodyLogSize: 1024,
		},
	}
}
