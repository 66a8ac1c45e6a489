// Package revocation implements the revoked-credential store.
//
// # Overview
//
// Credentials are never stored raw: the store indexes fixed-length SHA-256
// fingerprints, so a database leak cannot disclose bearer secrets while
// membership checks stay O(1). Each entry carries the credential's own
// natural expiry; once that passes, the verifier rejects the credential
// anyway, so the entry behaves as absent and becomes garbage.
//
// # Stores
//
// Three implementations compose:
//
//	MemoryStore    - concurrent in-memory index, reference for the
//	                 concurrency contract and single-node hot path
//	PostgresStore  - durable source of truth (UNIQUE fingerprint,
//	                 expires_at and principal_id indexed)
//	CachedStore    - Redis read-through over a durable store; concurrent
//	                 misses for one fingerprint collapse via singleflight
//
// # Compaction
//
// Compact(now) removes entries with expiresAt <= now. The Compactor runs it
// on a fixed interval off the request path; deletion re-checks expiry at
// delete time, so a concurrent Revoke that extended an entry wins. The
// store's size is therefore bounded by the number of distinct revocations
// inside one credential lifetime window, not total historical logouts.
//
// # Bulk revocation
//
// RevokeAllForPrincipal covers "ban user" and "force logout everywhere" for
// credentials registered at issuance (Registrar). It is an optimization for
// already-issued credentials: the authorization gate independently denies
// every request from a suspended principal.
package revocation
