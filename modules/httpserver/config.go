package httpserver

import (
	"net"
	"strconv"
	"time"
)

// Config defines the configuration for the HTTP server module, read from
// the "httpserver" prefix.
type Config struct {
	// Host is the hostname or IP address to bind to.
	Host string `config:"host"`

	// Port is the port number to listen on; 0 picks a free port.
	Port int `config:"port" validate:"min=0,max=65535"`

	ReadTimeout  time.Duration `config:"read-timeout"`
	WriteTimeout time.Duration `config:"write-timeout"`
	IdleTimeout  time.Duration `config:"idle-timeout"`

	// ShutdownTimeout bounds graceful shutdown. 0 closes open connections
	// immediately.
	ShutdownTimeout time.Duration `config:"shutdown-timeout" validate:"min=0"`
}

// DefaultConfig returns the values used for keys missing from the
// configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            0,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Address returns the host:port listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
