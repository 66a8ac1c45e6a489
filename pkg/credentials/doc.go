// Package credentials mints, verifies, and fingerprints session tokens.
//
// Tokens are HMAC-signed JWTs carrying the principal ID, role, and owning
// organization. The raw token is handed to the caller exactly once at
// issuance; everywhere else the system works with Fingerprint, its SHA256
// hex digest, which is what the revocation store keys on. Issuance also
// registers the fingerprint so that revoking every credential of a
// principal can enumerate outstanding tokens.
package credentials
