package tenant

import (
	"errors"

	"github.com/trimslot/trimslot/pkg/identity"
)

// ErrForbiddenScope is returned when a tenant-scoped principal supplies an
// organization override that differs from its own organization.
var ErrForbiddenScope = errors.New("tenant: organization override outside principal scope")

// Context is the effective tenant for a request. The zero value is the
// global scope ("no tenant"), reachable only by super-admins performing
// cross-organization operations.
type Context struct {
	orgID string
}

// Global returns the cross-organization scope
func Global() Context { return Context{} }

// For returns the scope of a single organization
func For(organizationID string) Context { return Context{orgID: organizationID} }

// IsGlobal reports whether the context carries no tenant
func (c Context) IsGlobal() bool { return c.orgID == "" }

// OrganizationID returns the tenant's organization id and whether one exists
func (c Context) OrganizationID() (string, bool) {
	if c.orgID == "" {
		return "", false
	}
	return c.orgID, true
}

// Covers reports whether a resource owned by ownerOrgID is inside this
// scope. The global scope covers everything.
func (c Context) Covers(ownerOrgID string) bool {
	return c.IsGlobal() || c.orgID == ownerOrgID
}

func (c Context) String() string {
	if c.orgID == "" {
		return "global"
	}
	return c.orgID
}

// Resolve derives the effective tenant for a request from the authenticated
// principal and an optional explicit organization override. The override is
// a support affordance: only super-admins may act "as" a tenant they do not
// belong to. Pure function of its inputs.
func Resolve(principal *identity.Principal, override string) (Context, error) {
	if principal.IsSuperAdmin() {
		if override != "" {
			return For(override), nil
		}
		return Global(), nil
	}

	orgID, _ := principal.OrganizationID()
	if override != "" && override != orgID {
		return Context{}, ErrForbiddenScope
	}
	return For(orgID), nil
}
