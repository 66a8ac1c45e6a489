package tenant

import (
	"context"
	"database/sql"

	"github.com/trimslot/trimslot/pkg/storage/migrate"
)

// Migration represents a database migration
type Migration = migrate.Migration

// GetMigrations returns all tenant migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL UNIQUE,
					status VARCHAR(50) NOT NULL DEFAULT 'trial',
					plan VARCHAR(50) NOT NULL DEFAULT 'free',
					max_employees INT NOT NULL,
					max_stores INT NOT NULL,
					max_monthly_appointments INT NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_organizations_slug ON organizations(slug);
				CREATE INDEX idx_organizations_status ON organizations(status);
			`,
		},
		{
			Version:     2,
			Description: "Create stores and appointments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS stores (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_stores_organization_id ON stores(organization_id);

				CREATE TABLE IF NOT EXISTS appointments (
					id UUID PRIMARY KEY,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
					customer_id UUID NOT NULL,
					scheduled_at TIMESTAMP NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_appointments_organization_id ON appointments(organization_id);
				CREATE INDEX idx_appointments_store_id ON appointments(store_id);
				CREATE INDEX idx_appointments_created_at ON appointments(created_at);
			`,
		},
	}
}

// RunMigrations applies all pending tenant migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "tenant", GetMigrations())
}
