package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trimslot/trimslot/pkg/storage/migrate"
)

// ErrGrantNotFound is returned when no grant exists for (store, feature)
var ErrGrantNotFound = errors.New("policy: feature grant not found")

// ErrInvalidAccessType is returned for unknown access types
var ErrInvalidAccessType = errors.New("policy: invalid access type")

// Store persists feature grants in PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore creates a new feature grant store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migration represents a database migration
type Migration = migrate.Migration

// GetMigrations returns all policy migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create store_features table",
			SQL: `
				CREATE TABLE IF NOT EXISTS store_features (
					store_id UUID NOT NULL REFERENCES stores(id) ON DELETE CASCADE,
					feature_key VARCHAR(255) NOT NULL,
					access_type VARCHAR(50) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(store_id, feature_key)
				);

				CREATE INDEX idx_store_features_store_id ON store_features(store_id);
			`,
		},
	}
}

// RunMigrations applies all pending policy migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "policy", GetMigrations())
}

// Grant exposes a feature on a store, replacing any existing grant
func (s *Store) Grant(ctx context.Context, storeID, featureKey string, accessType AccessType) error {
	if !accessType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccessType, accessType)
	}

	query := `
		INSERT INTO store_features (store_id, feature_key, access_type, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (store_id, feature_key) DO UPDATE SET access_type = EXCLUDED.access_type
	`
	if _, err := s.db.ExecContext(ctx, query, storeID, featureKey, accessType); err != nil {
		return fmt.Errorf("failed to grant feature: %w", err)
	}
	return nil
}

// Revoke removes a feature grant
func (s *Store) Revoke(ctx context.Context, storeID, featureKey string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM store_features WHERE store_id = $1 AND feature_key = $2`, storeID, featureKey)
	if err != nil {
		return fmt.Errorf("failed to revoke feature grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// Get retrieves a single grant
func (s *Store) Get(ctx context.Context, storeID, featureKey string) (*FeatureGrant, error) {
	query := `
		SELECT store_id, feature_key, access_type, created_at
		FROM store_features
		WHERE store_id = $1 AND feature_key = $2
	`
	grant := &FeatureGrant{}
	err := s.db.QueryRowContext(ctx, query, storeID, featureKey).Scan(
		&grant.StoreID, &grant.FeatureKey, &grant.AccessType, &grant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feature grant: %w", err)
	}
	return grant, nil
}

// ListForStore returns every grant on a store
func (s *Store) ListForStore(ctx context.Context, storeID string) ([]FeatureGrant, error) {
	query := `
		SELECT store_id, feature_key, access_type, created_at
		FROM store_features
		WHERE store_id = $1
		ORDER BY feature_key ASC
	`
	rows, err := s.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feature grants: %w", err)
	}
	defer rows.Close()

	var grants []FeatureGrant
	for rows.Next() {
		var g FeatureGrant
		if err := rows.Scan(&g.StoreID, &g.FeatureKey, &g.AccessType, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
