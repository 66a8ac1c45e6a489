package policy

import (
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/tenant"
)

// Decide evaluates whether a principal, within a resolved tenant context,
// may perform an operation requiring the given capability on a resource
// owned by resourceOwnerOrgID. A feature grant, when the operation targets
// a store feature, further gates customer access.
//
// Rules are evaluated in order and the first match decides. The function is
// pure: no I/O, deterministic, and exhaustively unit-testable over
// role x access type x capability x tenant alignment.
func Decide(principal *identity.Principal, tc tenant.Context, resourceOwnerOrgID string, required identity.Capability, feature *FeatureGrant) Decision {
	// 1. Suspension precedes everything, including super-admin privilege.
	if !principal.IsActive() {
		return Deny(DenyPrincipalSuspended)
	}

	// 2. Super-admins are unrestricted and may operate with no tenant.
	if principal.IsSuperAdmin() {
		return Allow()
	}

	// 3. Tenant isolation is absolute below super-admin: no capability on
	// another organization's resources, ever.
	if !tc.Covers(resourceOwnerOrgID) {
		return Deny(DenyCrossTenantAccess)
	}
	if tc.IsGlobal() {
		// A scoped principal can never legitimately hold the global scope;
		// resolution prevents it, and the engine refuses it independently.
		return Deny(DenyCrossTenantAccess)
	}

	// 4. Staff-only features are invisible to customers.
	if feature != nil && feature.AccessType == AccessStore && principal.Role() == identity.RoleCustomer {
		return Deny(DenyFeatureNotCustomerVisible)
	}

	// 5. The role must imply the required capability.
	if !identity.CapabilitiesForRole(principal.Role()).Has(required) {
		return Deny(DenyInsufficientRole)
	}

	return Allow()
}
