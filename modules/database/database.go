package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/servicetest/logging"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

// Database is a connection pool bound to a service's lifecycle. Start opens
// the pool, checks it and applies pending migrations; Stop closes it.
type Database struct {
	config     Config
	migrations []Migration
	logger     logging.Logger

	mu sync.RWMutex
	db *sql.DB
}

// NewDatabase creates a database that is opened by Start.
func NewDatabase(cfg Config, logger logging.Logger, migrations ...Migration) *Database {
	return &Database{
		config:     cfg,
		migrations: migrations,
		logger:     logging.OrNop(logger),
	}
}

// Start opens the connection pool and migrates the schema.
func (d *Database) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db != nil {
		return ErrAlreadyConnected
	}
	if err := validateTableName(d.config.MigrationsTable); err != nil {
		return err
	}
	if err := validateMigrations(d.migrations); err != nil {
		return err
	}

	db, err := sql.Open(d.config.Driver, d.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", d.config.Driver, err)
	}
	db.SetMaxOpenConns(d.config.MaxOpenConnections)
	db.SetMaxIdleConns(d.config.MaxIdleConnections)
	db.SetConnMaxLifetime(d.config.ConnectionMaxLifetime)
	db.SetConnMaxIdleTime(d.config.ConnectionMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, d.config.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s database: %w", d.config.Driver, err)
	}

	ran, err := migrator{db: db, table: d.config.MigrationsTable}.run(ctx, d.migrations)
	if err != nil {
		_ = db.Close()
		return err
	}

	d.db = db
	d.logger.Info("Database connected", "driver", d.config.Driver, "migrations", len(ran))
	return nil
}

// Stop closes the connection pool. An in-memory database is discarded.
func (d *Database) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return ErrNotConnected
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	d.logger.Info("Database closed", "driver", d.config.Driver)
	return nil
}

// DB returns the connection pool while the database is started.
func (d *Database) DB() (*sql.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil, ErrNotConnected
	}
	return d.db, nil
}

// AppliedMigrations returns the IDs of applied migrations in the order they
// were applied.
func (d *Database) AppliedMigrations(ctx context.Context) ([]string, error) {
	db, err := d.DB()
	if err != nil {
		return nil, err
	}
	return migrator{db: db, table: d.config.MigrationsTable}.applied(ctx)
}
