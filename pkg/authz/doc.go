// Package authz is the authorization gate in front of every tenant-scoped
// operation.
//
// # Overview
//
// Authorize runs the full decision pipeline in a fixed order, short-
// circuiting on the first failure:
//
//  1. Resolve the effective tenant context from the principal and any
//     override parameter.
//  2. If the request carries a credential fingerprint, consult the
//     revocation store. A revoked credential loses regardless of any
//     other check.
//  3. A suspended principal is denied even when its specific credential
//     was never individually revoked; status is the authoritative
//     kill-switch and revocation entries only cover already-issued
//     credentials of formerly active principals.
//  4. Hand the fully resolved question to the policy engine.
//
// Every denial, including revocation-store unavailability, collapses into
// the single opaque ErrNotAuthorized; the underlying reason is logged and
// counted internally but never leaves the boundary. Authorization fails
// closed: when the store cannot answer, the request is denied.
//
// The package also carries the HTTP plumbing around the gate: bearer-token
// authentication middleware, per-route Require middleware, and the admin
// handlers for revocations and feature grants.
package authz
