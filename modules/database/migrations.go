package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// Migration is a schema change applied once per database, in the order the
// migrations are registered.
type Migration struct {
	ID  string
	SQL string
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func validateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}
	return nil
}

func validateMigrations(migrations []Migration) error {
	seen := make(map[string]bool, len(migrations))
	for i, m := range migrations {
		if m.ID == "" || m.SQL == "" {
			return fmt.Errorf("%w: migration %d needs an ID and SQL", ErrInvalidMigration, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate ID %q", ErrInvalidMigration, m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

type migrator struct {
	db    *sql.DB
	table string
}

func (m migrator) createTable(ctx context.Context) error {
	// #nosec G201 - table name is validated in Start
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, m.table)
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m migrator) applied(ctx context.Context) ([]string, error) {
	// #nosec G201 - table name is validated in Start
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY applied_at, rowid", m.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}
	return ids, nil
}

// run applies every migration not yet recorded and returns the IDs it
// applied.
func (m migrator) run(ctx context.Context, migrations []Migration) ([]string, error) {
	if err := m.createTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(done))
	for _, id := range done {
		applied[id] = true
	}

	var ran []string
	for _, mig := range migrations {
		if applied[mig.ID] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return ran, fmt.Errorf("%w: %s: %w", ErrMigration, mig.ID, err)
		}
		ran = append(ran, mig.ID)
	}
	return ran, nil
}

func (m migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	// #nosec G201 - table name is validated in Start
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (id) VALUES (?)", m.table), mig.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}
