package database

import "time"

// Config defines the configuration for the database module, read from the
// "database" prefix.
type Config struct {
	// Driver is the database/sql driver name. The pure Go "sqlite" driver is
	// always linked in.
	Driver string `config:"driver" validate:"required"`

	// DSN is the driver specific connection string. ":memory:" gives every
	// service its own throwaway database.
	DSN string `config:"dsn" validate:"required"`

	// MaxOpenConnections caps the pool. An in-memory sqlite database lives
	// on a single connection, so the default is 1.
	MaxOpenConnections    int           `config:"max-open-connections" validate:"min=0"`
	MaxIdleConnections    int           `config:"max-idle-connections" validate:"min=0"`
	ConnectionMaxLifetime time.Duration `config:"connection-max-lifetime" validate:"min=0"`
	ConnectionMaxIdleTime time.Duration `config:"connection-max-idle-time" validate:"min=0"`

	// PingTimeout bounds the connectivity check done on start.
	PingTimeout time.Duration `config:"ping-timeout" validate:"gt=0"`

	// MigrationsTable records applied migrations.
	MigrationsTable string `config:"migrations-table" validate:"required"`
}

// DefaultConfig returns the values used for keys missing from the
// configuration.
func DefaultConfig() Config {
	return Config{
		Driver:             "sqlite",
		DSN:                ":memory:",
		MaxOpenConnections: 1,
		MaxIdleConnections: 1,
		PingTimeout:        5 * time.Second,
		MigrationsTable:    "schema_migrations",
	}
}
