package policy

import (
	"time"
)

// AccessType controls which caller class may invoke a store feature
type AccessType string

const (
	// AccessStore restricts the feature to staff (employee/admin) of the
	// owning organization.
	AccessStore AccessType = "store"
	// AccessCustomer additionally exposes the feature to end-customers of
	// the store, but never across organizations.
	AccessCustomer AccessType = "customer"
)

// Valid reports whether the access type is known
func (a AccessType) Valid() bool {
	return a == AccessStore || a == AccessCustomer
}

// FeatureGrant exposes a feature on a store to a caller class
type FeatureGrant struct {
	StoreID    string     `json:"store_id"`
	FeatureKey string     `json:"feature_key"`
	AccessType AccessType `json:"access_type"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DenyReason identifies why a decision denied. Reasons are for internal
// logging only; the authorization gate collapses them to a single opaque
// outcome at the system boundary.
type DenyReason string

const (
	DenyPrincipalSuspended        DenyReason = "principal_suspended"
	DenyCrossTenantAccess         DenyReason = "cross_tenant_access"
	DenyFeatureNotCustomerVisible DenyReason = "feature_not_customer_visible"
	DenyInsufficientRole          DenyReason = "insufficient_role"
)

// Decision is the outcome of a policy evaluation
type Decision struct {
	Allowed bool
	Reason  DenyReason // set only when denied
}

// Allow is the affirmative decision
func Allow() Decision { return Decision{Allowed: true} }

// Deny is a negative decision carrying its internal reason
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }
