package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a principal does not exist
var ErrNotFound = errors.New("identity: principal not found")

// EmployeeLimiter reports whether an organization can take on another
// staff principal under its plan. Implemented by tenant.Service.
type EmployeeLimiter interface {
	CheckEmployeeLimit(ctx context.Context, organizationID string) error
}

// Store persists principals in PostgreSQL
type Store struct {
	db     *sql.DB
	limits EmployeeLimiter
}

// NewStore creates a new principal store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SetEmployeeLimiter installs the plan-limit check consulted on staff
// provisioning. A setter rather than a constructor argument because the
// limiter is the tenant service, which itself depends on this store.
func (s *Store) SetEmployeeLimiter(limits EmployeeLimiter) {
	s.limits = limits
}

// BootstrapSuperAdmin ensures a single super-admin principal exists and
// returns it. Safe to call on every startup.
func (s *Store) BootstrapSuperAdmin(ctx context.Context) (*Principal, error) {
	query := `
		SELECT id, role, status, organization_id, created_at
		FROM principals
		WHERE role = $1
		LIMIT 1
	`
	existing, err := s.scanPrincipal(s.db.QueryRowContext(ctx, query, RoleSuperAdmin))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up super admin: %w", err)
	}

	p := NewSuperAdmin(uuid.New().String())
	insert := `
		INSERT INTO principals (id, role, status, organization_id, created_at)
		VALUES ($1, $2, $3, NULL, $4)
	`
	if _, err := s.db.ExecContext(ctx, insert, p.id, p.role, p.status, p.createdAt); err != nil {
		return nil, fmt.Errorf("failed to bootstrap super admin: %w", err)
	}
	return p, nil
}

// Provision creates a tenant-scoped principal. Staff roles count against
// the organization's employee limit; customers do not.
func (s *Store) Provision(ctx context.Context, organizationID string, role Role) (*Principal, error) {
	p, err := NewScoped(uuid.New().String(), organizationID, role)
	if err != nil {
		return nil, err
	}

	if s.limits != nil && (role == RoleAdmin || role == RoleEmployee) {
		if err := s.limits.CheckEmployeeLimit(ctx, organizationID); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO principals (id, role, status, organization_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, query, p.id, p.role, p.status, p.orgID, p.createdAt); err != nil {
		return nil, fmt.Errorf("failed to provision principal: %w", err)
	}
	return p, nil
}

// Get retrieves a principal by id
func (s *Store) Get(ctx context.Context, id string) (*Principal, error) {
	query := `
		SELECT id, role, status, organization_id, created_at
		FROM principals
		WHERE id = $1
	`
	return s.scanPrincipal(s.db.QueryRowContext(ctx, query, id))
}

// SetStatus updates a principal's lifecycle status. Principals are never
// deleted; suspension is the authoritative kill-switch for all their
// credentials.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	query := `UPDATE principals SET status = $1 WHERE id = $2`
	res, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update principal status: %w", err)
	}
	return requireRow(res)
}

// UpdateRole changes a scoped principal's role. The query refuses to touch
// super-admin rows or to assign the super-admin role, mirroring the
// structural invariant enforced by the Principal constructors.
func (s *Store) UpdateRole(ctx context.Context, id string, role Role) error {
	if !role.Valid() || role == RoleSuperAdmin {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	query := `
		UPDATE principals
		SET role = $1
		WHERE id = $2 AND organization_id IS NOT NULL
	`
	res, err := s.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return fmt.Errorf("failed to update principal role: %w", err)
	}
	return requireRow(res)
}

// SuspendAllForOrganization soft-disables every principal scoped to the
// organization. Used by the cascade when an organization is deleted.
func (s *Store) SuspendAllForOrganization(ctx context.Context, organizationID string) (int64, error) {
	query := `
		UPDATE principals
		SET status = $1
		WHERE organization_id = $2 AND status != $1
	`
	res, err := s.db.ExecContext(ctx, query, StatusSuspended, organizationID)
	if err != nil {
		return 0, fmt.Errorf("failed to suspend organization principals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListForOrganization returns all principals scoped to an organization
func (s *Store) ListForOrganization(ctx context.Context, organizationID string) ([]*Principal, error) {
	query := `
		SELECT id, role, status, organization_id, created_at
		FROM principals
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var principals []*Principal
	for rows.Next() {
		p, err := s.scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

func (s *Store) scanPrincipal(scanner interface {
	Scan(dest ...interface{}) error
}) (*Principal, error) {
	var (
		p         Principal
		orgID     sql.NullString
		createdAt time.Time
	)
	err := scanner.Scan(&p.id, &p.role, &p.status, &orgID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan principal: %w", err)
	}
	if orgID.Valid {
		p.orgID = orgID.String
	}
	p.createdAt = createdAt
	return &p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
