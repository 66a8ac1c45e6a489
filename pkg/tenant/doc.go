// Package tenant provides organizations, plan limits, and tenant context
// resolution. An organization is the unit of data isolation; Resolve derives
// the effective tenant for a request from the authenticated principal and an
// optional super-admin override.
package tenant
