package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trimslot/trimslot/pkg/storage/migrate"
)

// PostgresStore is the durable revocation store. It is the source of truth
// behind the Redis cache layer and survives restarts; the schema keeps
// UNIQUE(fingerprint) plus indexes on expires_at and principal_id so
// membership checks, compaction and bulk revocation all hit an index.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a new durable store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migration represents a database migration
type Migration = migrate.Migration

// GetMigrations returns all revocation migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create credentials issuance registry",
			SQL: `
				CREATE TABLE IF NOT EXISTS credentials (
					token_fingerprint CHAR(64) PRIMARY KEY,
					principal_id UUID NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					issued_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_credentials_principal_id ON credentials(principal_id);
				CREATE INDEX idx_credentials_expires_at ON credentials(expires_at);
			`,
		},
		{
			Version:     2,
			Description: "Create revocations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS revocations (
					token_fingerprint CHAR(64) NOT NULL UNIQUE,
					principal_id UUID NOT NULL,
					expires_at TIMESTAMP NOT NULL,
					reason VARCHAR(50) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_revocations_expires_at ON revocations(expires_at);
				CREATE INDEX idx_revocations_principal_id ON revocations(principal_id);
			`,
		},
	}
}

// RunMigrations applies all pending revocation migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db, "revocation", GetMigrations())
}

// Revoke upserts the entry for the fingerprint (last-writer-wins)
func (s *PostgresStore) Revoke(ctx context.Context, fingerprint, principalID string, expiresAt time.Time, reason Reason) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}
	if !expiresAt.After(s.now()) {
		return ErrInvalidExpiry
	}

	query := `
		INSERT INTO revocations (token_fingerprint, principal_id, expires_at, reason, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (token_fingerprint)
		DO UPDATE SET principal_id = EXCLUDED.principal_id, expires_at = EXCLUDED.expires_at,
		              reason = EXCLUDED.reason, created_at = EXCLUDED.created_at
	`
	if _, err := s.db.ExecContext(ctx, query, fingerprint, principalID, expiresAt, reason); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}
	return nil
}

// IsRevoked checks for a live entry
func (s *PostgresStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM revocations
			WHERE token_fingerprint = $1 AND expires_at > $2
		)
	`
	var revoked bool
	if err := s.db.QueryRowContext(ctx, query, fingerprint, s.now()).Scan(&revoked); err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// Compact deletes expired entries from both tables. The WHERE clause
// compares expires_at at deletion time, so an entry re-revoked with a later
// expiry by a concurrent writer is untouched.
func (s *PostgresStore) Compact(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revocations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to compact revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE expires_at <= $1`, now); err != nil {
		return int(n), fmt.Errorf("failed to compact credentials: %w", err)
	}
	return int(n), nil
}

// RegisterIssued records a credential fingerprint at issuance time
func (s *PostgresStore) RegisterIssued(ctx context.Context, fingerprint, principalID string, expiresAt time.Time) error {
	if err := validateFingerprint(fingerprint); err != nil {
		return err
	}

	query := `
		INSERT INTO credentials (token_fingerprint, principal_id, expires_at, issued_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token_fingerprint) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, fingerprint, principalID, expiresAt); err != nil {
		return fmt.Errorf("failed to register credential: %w", err)
	}
	return nil
}

// RevokeAllForPrincipal inserts a revocation entry for every outstanding
// registered credential of the principal and returns their fingerprints
func (s *PostgresStore) RevokeAllForPrincipal(ctx context.Context, principalID string, reason Reason) ([]string, error) {
	query := `
		INSERT INTO revocations (token_fingerprint, principal_id, expires_at, reason, created_at)
		SELECT token_fingerprint, principal_id, expires_at, $1, NOW()
		FROM credentials
		WHERE principal_id = $2 AND expires_at > $3
		ON CONFLICT (token_fingerprint)
		DO UPDATE SET reason = EXCLUDED.reason, expires_at = EXCLUDED.expires_at
		RETURNING token_fingerprint
	`
	rows, err := s.db.QueryContext(ctx, query, reason, principalID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to revoke all for principal: %w", err)
	}
	defer rows.Close()

	var fingerprints []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, rows.Err()
}

// PurgeOrganization removes every revocation and credential record scoped
// to the organization's principals. Used by the tenant delete cascade.
func (s *PostgresStore) PurgeOrganization(ctx context.Context, organizationID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM revocations
		WHERE principal_id IN (SELECT id FROM principals WHERE organization_id = $1)
	`, organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge organization revocations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM credentials
		WHERE principal_id IN (SELECT id FROM principals WHERE organization_id = $1)
	`, organizationID); err != nil {
		return n, fmt.Errorf("failed to purge organization credentials: %w", err)
	}
	return n, nil
}

// CountLive returns the number of live entries, for the store-size gauge
func (s *PostgresStore) CountLive(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM revocations WHERE expires_at > $1`, s.now()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count live revocations: %w", err)
	}
	return count, nil
}
