package tenant

import (
	"time"
)

// Plan represents subscription plan tiers
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// OrgStatus represents organization status
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
	OrgStatusTrial     OrgStatus = "trial"
	OrgStatusExpired   OrgStatus = "expired"
)

// Limits represents resource limits for an organization's plan
type Limits struct {
	MaxEmployees           int `json:"max_employees"`
	MaxStores              int `json:"max_stores"`
	MaxMonthlyAppointments int `json:"max_monthly_appointments"`
}

// Organization is the unit of data isolation: every tenant-scoped resource
// belongs to exactly one organization. The slug is immutable once assigned.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    OrgStatus `json:"status"`
	Plan      Plan      `json:"plan"`
	Limits    Limits    `json:"limits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the organization may be operated on at all.
// Trial organizations are operational; suspended and expired ones are not.
func (o *Organization) IsActive() bool {
	return o.Status == OrgStatusActive || o.Status == OrgStatusTrial
}

// DefaultLimits returns the plan's default resource limits
func DefaultLimits(plan Plan) Limits {
	switch plan {
	case PlanBasic:
		return Limits{MaxEmployees: 10, MaxStores: 3, MaxMonthlyAppointments: 1000}
	case PlanPro:
		return Limits{MaxEmployees: 50, MaxStores: 10, MaxMonthlyAppointments: 10000}
	case PlanEnterprise:
		return Limits{MaxEmployees: 500, MaxStores: 100, MaxMonthlyAppointments: 100000}
	default: // free
		return Limits{MaxEmployees: 2, MaxStores: 1, MaxMonthlyAppointments: 100}
	}
}

// Store is one physical location of an organization. Feature grants and
// appointments hang off stores, never off organizations directly.
type Store struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

// LimitExceededError is returned when an operation would exceed a plan limit
type LimitExceededError struct {
	Resource string
	Current  int
	Limit    int
}

func (e *LimitExceededError) Error() string {
	return "plan limit exceeded for " + e.Resource
}

// CreateOrgRequest represents a request to create an organization
type CreateOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
	Plan Plan   `json:"plan,omitempty"`
}
