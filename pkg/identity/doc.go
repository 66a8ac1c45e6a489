// Package identity models principals and the capabilities their roles imply.
//
// # Overview
//
// A Principal is either a global super-admin or a tenant-scoped user
// (admin, employee or customer of exactly one organization). The scope
// invariant — super_admin iff no organization — is enforced structurally by
// the constructors rather than checked ad hoc at call sites:
//
//	sa := identity.NewSuperAdmin(id)              // no organization, ever
//	p, err := identity.NewScoped(id, orgID, role) // organization required
//
// # Roles and Capabilities
//
// Role capability sets form a strict chain:
//
//	admin ⊇ employee ⊇ customer
//
// A customer only ever acts on resources it itself owns (its own
// appointments, pets, profile); staff roles add store- and org-level
// capabilities on top. Super-admins hold every capability and are the only
// principals permitted to operate without a tenant context.
//
//	caps := identity.CapabilitiesForRole(identity.RoleEmployee)
//	if caps.Has(identity.CapAppointmentWrite) { ... }
//
// # Lifecycle
//
// Principals are never physically deleted. Suspension (Store.SetStatus) is
// the authoritative kill-switch: a suspended principal is denied by the
// authorization gate regardless of individual credential revocations.
//
// # Related Packages
//
//   - pkg/tenant: organizations and tenant context resolution
//   - pkg/policy: the access decision function consuming roles and capabilities
//   - pkg/authz: the gate composing identity, tenancy, revocation and policy
package identity
