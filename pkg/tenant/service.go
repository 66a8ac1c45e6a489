package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an organization does not exist
var ErrNotFound = errors.New("tenant: organization not found")

// ErrSlugTaken is returned when a slug is already assigned to another organization
var ErrSlugTaken = errors.New("tenant: slug already in use")

// ErrStoreNotFound is returned when a store does not exist
var ErrStoreNotFound = errors.New("tenant: store not found")

// PrincipalSuspender suspends every principal scoped to an organization.
// Implemented by identity.Store.
type PrincipalSuspender interface {
	SuspendAllForOrganization(ctx context.Context, organizationID string) (int64, error)
}

// RevocationPurger removes every revocation entry scoped to an organization.
// Implemented by revocation.PostgresStore.
type RevocationPurger interface {
	PurgeOrganization(ctx context.Context, organizationID string) (int64, error)
}

// FeatureDefaulter seeds a newly opened store with its starting feature
// grants. Implemented by policy.Defaulter.
type FeatureDefaulter interface {
	ApplyDefaults(ctx context.Context, storeID string) error
}

// Service manages organizations and their stores in PostgreSQL
type Service struct {
	db         *sql.DB
	principals PrincipalSuspender
	revocation RevocationPurger
	defaults   FeatureDefaulter
}

// NewService creates a new organization service. The suspender and purger
// are optional collaborators for the delete cascade, and the defaulter for
// seeding new stores; passing nil disables the corresponding step.
func NewService(db *sql.DB, principals PrincipalSuspender, revocation RevocationPurger, defaults FeatureDefaulter) *Service {
	return &Service{db: db, principals: principals, revocation: revocation, defaults: defaults}
}

// Create creates a new organization with plan-default limits
func (s *Service) Create(ctx context.Context, req CreateOrgRequest) (*Organization, error) {
	org := &Organization{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Slug:   req.Slug,
		Status: OrgStatusTrial,
		Plan:   req.Plan,
	}
	if org.Slug == "" {
		org.Slug = generateSlug(req.Name)
	}
	if org.Plan == "" {
		org.Plan = PlanFree
	}
	org.Limits = DefaultLimits(org.Plan)

	query := `
		INSERT INTO organizations (id, name, slug, status, plan, max_employees, max_stores, max_monthly_appointments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query,
		org.ID, org.Name, org.Slug, org.Status, org.Plan,
		org.Limits.MaxEmployees, org.Limits.MaxStores, org.Limits.MaxMonthlyAppointments).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

// Get retrieves an organization by id
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	return s.getBy(ctx, "id", id)
}

// GetBySlug retrieves an organization by slug
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.getBy(ctx, "slug", slug)
}

func (s *Service) getBy(ctx context.Context, column, value string) (*Organization, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, status, plan, max_employees, max_stores, max_monthly_appointments, created_at, updated_at
		FROM organizations
		WHERE %s = $1
	`, column)

	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&org.ID, &org.Name, &org.Slug, &org.Status, &org.Plan,
		&org.Limits.MaxEmployees, &org.Limits.MaxStores, &org.Limits.MaxMonthlyAppointments,
		&org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// CreateStore opens a new store for the organization. The store counts
// against the plan's store limit, and the feature defaulter seeds it with
// the manifest's starting grants.
func (s *Service) CreateStore(ctx context.Context, organizationID, name string) (*Store, error) {
	if err := s.CheckStoreLimit(ctx, organizationID); err != nil {
		return nil, err
	}

	store := &Store{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		Name:           name,
	}
	query := `
		INSERT INTO stores (id, organization_id, name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, store.ID, store.OrganizationID, store.Name).
		Scan(&store.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	if s.defaults != nil {
		if err := s.defaults.ApplyDefaults(ctx, store.ID); err != nil {
			return nil, fmt.Errorf("failed to seed store features: %w", err)
		}
	}
	return store, nil
}

// StoreOrganization resolves the organization owning a store
func (s *Service) StoreOrganization(ctx context.Context, storeID string) (string, error) {
	var organizationID string
	err := s.db.QueryRowContext(ctx,
		`SELECT organization_id FROM stores WHERE id = $1`, storeID).Scan(&organizationID)
	if err == sql.ErrNoRows {
		return "", ErrStoreNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve store organization: %w", err)
	}
	return organizationID, nil
}

// SetStatus transitions an organization's lifecycle status. The slug and
// plan limits are untouched.
func (s *Service) SetStatus(ctx context.Context, id string, status OrgStatus) error {
	query := `UPDATE organizations SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update organization status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ChangePlan updates the plan and resets limits to the plan defaults
func (s *Service) ChangePlan(ctx context.Context, id string, plan Plan) error {
	limits := DefaultLimits(plan)
	query := `
		UPDATE organizations
		SET plan = $1, max_employees = $2, max_stores = $3, max_monthly_appointments = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := s.db.ExecContext(ctx, query,
		plan, limits.MaxEmployees, limits.MaxStores, limits.MaxMonthlyAppointments, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to change plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an organization and cascade-invalidates everything scoped
// to it: all its principals are suspended and all revocation entries for
// those principals are purged, before the row itself is deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.principals != nil {
		if _, err := s.principals.SuspendAllForOrganization(ctx, id); err != nil {
			return fmt.Errorf("failed to suspend organization principals: %w", err)
		}
	}
	if s.revocation != nil {
		if _, err := s.revocation.PurgeOrganization(ctx, id); err != nil {
			return fmt.Errorf("failed to purge organization revocations: %w", err)
		}
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
	return slug
}

// isUniqueViolation detects a unique-constraint violation without binding
// to a specific driver error type.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
