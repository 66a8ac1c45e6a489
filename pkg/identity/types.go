package identity

import (
	"errors"
	"fmt"
	"time"
)

// Role represents the platform-level role of a principal
type Role string

const (
	// RoleSuperAdmin is the only role permitted to operate without a tenant.
	RoleSuperAdmin Role = "super_admin"
	// RoleAdmin has full access within its own organization.
	RoleAdmin Role = "admin"
	// RoleEmployee is store staff of an organization.
	RoleEmployee Role = "employee"
	// RoleCustomer is an end-customer of an organization's stores.
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEmployee, RoleCustomer:
		return true
	}
	return false
}

// Status represents the lifecycle status of a principal.
// Principals are never physically deleted; suspension is the kill-switch.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

var (
	// ErrMissingOrganization is returned when a tenant-scoped role is created without an organization
	ErrMissingOrganization = errors.New("identity: tenant-scoped role requires an organization id")
	// ErrInvalidRole is returned for unknown or structurally invalid role assignments
	ErrInvalidRole = errors.New("identity: invalid role")
)

// Principal represents an authenticated account: either a global super-admin
// or a tenant-scoped user. The invariant "role == super_admin iff the
// organization id is absent" is enforced by the constructors; the zero value
// is not a valid Principal.
type Principal struct {
	id        string
	role      Role
	status    Status
	orgID     string // empty only for RoleSuperAdmin
	createdAt time.Time
}

// NewSuperAdmin creates a global principal with no organization scope
func NewSuperAdmin(id string) *Principal {
	return &Principal{
		id:        id,
		role:      RoleSuperAdmin,
		status:    StatusActive,
		createdAt: time.Now().UTC(),
	}
}

// NewScoped creates a tenant-scoped principal. The role must be one of
// admin, employee or customer, and the organization id must be non-empty.
func NewScoped(id, organizationID string, role Role) (*Principal, error) {
	if !role.Valid() || role == RoleSuperAdmin {
		return nil, fmt.Errorf("%w: %q is not a tenant-scoped role", ErrInvalidRole, role)
	}
	if organizationID == "" {
		return nil, ErrMissingOrganization
	}
	return &Principal{
		id:        id,
		role:      role,
		status:    StatusActive,
		orgID:     organizationID,
		createdAt: time.Now().UTC(),
	}, nil
}

// ID returns the principal's unique identifier
func (p *Principal) ID() string { return p.id }

// Role returns the principal's role
func (p *Principal) Role() Role { return p.role }

// Status returns the principal's lifecycle status
func (p *Principal) Status() Status { return p.status }

// IsActive reports whether the principal may authenticate at all
func (p *Principal) IsActive() bool { return p.status == StatusActive }

// IsSuperAdmin reports whether the principal is globally scoped
func (p *Principal) IsSuperAdmin() bool { return p.role == RoleSuperAdmin }

// OrganizationID returns the owning organization id and whether one exists.
// It is absent exactly for super-admins.
func (p *Principal) OrganizationID() (string, bool) {
	if p.orgID == "" {
		return "", false
	}
	return p.orgID, true
}

// CreatedAt returns when the principal was provisioned
func (p *Principal) CreatedAt() time.Time { return p.createdAt }

// Suspend soft-disables the principal. Every credential it holds is treated
// as revoked from this point regardless of individual revocation entries.
func (p *Principal) Suspend() { p.status = StatusSuspended }

// Reactivate restores a suspended principal
func (p *Principal) Reactivate() { p.status = StatusActive }

// ChangeRole updates the principal's role within its current scope.
// Promoting to or demoting from super_admin is rejected: the organization
// binding is structural and cannot change through a role update.
func (p *Principal) ChangeRole(role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if (role == RoleSuperAdmin) != (p.orgID == "") {
		return fmt.Errorf("%w: role %q does not match scope", ErrInvalidRole, role)
	}
	p.role = role
	return nil
}
