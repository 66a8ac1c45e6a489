// Package policy evaluates access decisions for tenant-scoped resources.
//
// # Overview
//
// The core of the package is Decide, a pure function that takes a fully
// resolved authorization question (principal, tenant context, resource
// owner, required capability, optional feature grant) and returns an
// allow/deny Decision. It performs no I/O and reads no clocks, which keeps
// it trivially table-testable; all loading of principals, grants, and
// revocation state happens before the call, in the authz gate.
//
// Rules are evaluated in a fixed order, most fundamental first:
//
//  1. Suspended principals are denied everything.
//  2. Super admins are allowed everything that remains.
//  3. The tenant context must cover the resource's owning organization.
//  4. Staff-only store features are hidden from customers.
//  5. The principal's role must carry the required capability.
//
// The deny reasons attached to decisions exist for internal logging and
// metrics only; callers at the system boundary collapse every denial into
// one opaque error.
//
// The remainder of the package is feature-grant plumbing: a PostgreSQL
// Store for grants, an in-process expirable LRU (GrantCache) in front of
// it, and a YAML Manifest describing the grants a newly opened store
// starts with.
package policy
