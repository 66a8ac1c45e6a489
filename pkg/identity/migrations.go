package identity

import (
	"context"
	"database/sql"

	"github.com/trimslot/trimslot/pkg/storage/migrate"
)

// Migration represents a database migration
type Migration = migrate.Migration

// GetMigrations returns all identity migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create principals table",
			SQL: `
				CREATE TABLE IF NOT EXISTS principals (
					id UUID PRIMARY KEY,
					role VARCHAR(50) NOT NULL,
					status VARCHAR(50) NOT NULL DEFAULT 'active',
					organization_id UUID REFERENCES organizations(id) ON DELETE RESTRICT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK ((role = 'super_admin') = (organization_id IS NULL))
				);

				CREATE INDEX idx_principals_organization_id ON principals(organization_id);
				CREATE INDEX idx_principals_status ON principals(status);
			`,
		},
	}
}

// RunMigrations applies all pending identity migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "identity", GetMigrations())
}
