package database

import (
	"errors"
)

// Error definitions
var (
	// ErrNotConnected is returned when the database is used before Start or after Stop.
	ErrNotConnected = errors.New("database not connected")

	// ErrAlreadyConnected is returned by Start on a connected database.
	ErrAlreadyConnected = errors.New("database already connected")

	// ErrInvalidTableName is returned when the migrations table name is not a plain identifier.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrInvalidMigration is returned for a migration without an ID or SQL, or with a duplicate ID.
	ErrInvalidMigration = errors.New("invalid migration")

	// ErrMigration wraps failures while applying a migration.
	ErrMigration = errors.New("migration failed")
)
