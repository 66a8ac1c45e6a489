package identity

// Capability is an atomic permission implied by a role, e.g. "appointment:write"
type Capability string

const (
	CapAppointmentRead  Capability = "appointment:read"
	CapAppointmentWrite Capability = "appointment:write"
	CapCustomerRead     Capability = "customer:read"
	CapCustomerWrite    Capability = "customer:write"
	CapStoreRead        Capability = "store:read"
	CapStoreWrite       Capability = "store:write"
	CapEmployeeRead     Capability = "employee:read"
	CapEmployeeWrite    Capability = "employee:write"
	CapFeatureRead      Capability = "feature:read"
	CapFeatureWrite     Capability = "feature:write"
	CapOrgSettingsRead  Capability = "org_settings:read"
	CapOrgSettingsWrite Capability = "org_settings:write"

	// CapOwnAppointments covers a customer acting on resources it itself
	// owns (its own appointments, pets, profile).
	CapOwnAppointments Capability = "own_appointments:write"
	CapOwnProfile      Capability = "own_profile:write"
)

// CapabilitySet is the set of capabilities a role grants
type CapabilitySet map[Capability]struct{}

// Has reports whether the set contains the capability
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in the set (unordered)
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	return out
}

func newSet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func union(a, b CapabilitySet) CapabilitySet {
	s := make(CapabilitySet, len(a)+len(b))
	for c := range a {
		s[c] = struct{}{}
	}
	for c := range b {
		s[c] = struct{}{}
	}
	return s
}

// Role capability sets form a strict chain: admin ⊇ employee ⊇ customer.
var (
	customerCaps = newSet(
		CapAppointmentRead,
		CapOwnAppointments,
		CapOwnProfile,
		CapFeatureRead,
	)

	employeeCaps = union(customerCaps, newSet(
		CapAppointmentWrite,
		CapCustomerRead,
		CapCustomerWrite,
		CapStoreRead,
		CapEmployeeRead,
	))

	adminCaps = union(employeeCaps, newSet(
		CapStoreWrite,
		CapEmployeeWrite,
		CapFeatureWrite,
		CapOrgSettingsRead,
		CapOrgSettingsWrite,
	))
)

// allCapabilities is the super-admin set: everything defined above.
var allCapabilities = union(adminCaps, newSet())

// CapabilitiesForRole returns the capability set a role implies.
// Unknown roles get an empty set.
func CapabilitiesForRole(role Role) CapabilitySet {
	switch role {
	case RoleSuperAdmin:
		return allCapabilities
	case RoleAdmin:
		return adminCaps
	case RoleEmployee:
		return employeeCaps
	case RoleCustomer:
		return customerCaps
	}
	return newSet()
}
