package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityChain(t *testing.T) {
	customer := CapabilitiesForRole(RoleCustomer)
	employee := CapabilitiesForRole(RoleEmployee)
	admin := CapabilitiesForRole(RoleAdmin)
	super := CapabilitiesForRole(RoleSuperAdmin)

	// admin ⊇ employee ⊇ customer
	for c := range customer {
		assert.True(t, employee.Has(c), "employee missing customer capability %s", c)
	}
	for c := range employee {
		assert.True(t, admin.Has(c), "admin missing employee capability %s", c)
	}
	for c := range admin {
		assert.True(t, super.Has(c), "super admin missing admin capability %s", c)
	}

	// Proper containment at each step
	assert.Greater(t, len(employee), len(customer))
	assert.Greater(t, len(admin), len(employee))
}

func TestCapabilitiesForRole(t *testing.T) {
	customer := CapabilitiesForRole(RoleCustomer)
	assert.True(t, customer.Has(CapOwnAppointments))
	assert.True(t, customer.Has(CapAppointmentRead))
	assert.False(t, customer.Has(CapAppointmentWrite))
	assert.False(t, customer.Has(CapStoreWrite))

	employee := CapabilitiesForRole(RoleEmployee)
	assert.True(t, employee.Has(CapAppointmentWrite))
	assert.False(t, employee.Has(CapEmployeeWrite))

	admin := CapabilitiesForRole(RoleAdmin)
	assert.True(t, admin.Has(CapEmployeeWrite))
	assert.True(t, admin.Has(CapOrgSettingsWrite))

	assert.Empty(t, CapabilitiesForRole(Role("unknown")))
}
