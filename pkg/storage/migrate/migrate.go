// Package migrate applies versioned schema migrations, recording every
// applied version so repeated startups skip work already done.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change owned by a component
type Migration struct {
	Version     int
	Description string
	SQL         string
}

const trackingTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		component VARCHAR(50) NOT NULL,
		version INT NOT NULL,
		description TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW(),
		PRIMARY KEY (component, version)
	)
`

// Run applies the component's pending migrations in version order. Applied
// versions are recorded in schema_migrations and skipped on later runs;
// each pending migration executes in its own transaction together with its
// tracking row, so a failure leaves the schema at the last good version.
func Run(ctx context.Context, db *sql.DB, component string, migrations []Migration) error {
	if _, err := db.ExecContext(ctx, trackingTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db, component)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := apply(ctx, db, component, m); err != nil {
			return fmt.Errorf("%s migration %d (%s) failed: %w", component, m.Version, m.Description, err)
		}
	}
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB, component string) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT version FROM schema_migrations WHERE component = $1 ORDER BY version`, component)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, component string, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		tx.Rollback()
		return err
	}
	record := `INSERT INTO schema_migrations (component, version, description) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, record, component, m.Version, m.Description); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
