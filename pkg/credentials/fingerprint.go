package credentials

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the SHA256 hash of a credential for storage and
// revocation lookups. The raw credential is never persisted; every store
// keyed by credential uses this 64-character hex digest instead.
func Fingerprint(credential string) string {
	hash := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(hash[:])
}
