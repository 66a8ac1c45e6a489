package authz

import "errors"

// ErrNotAuthorized is the single outcome every denied or failed
// authorization collapses into at the system boundary. The underlying
// reason is logged and counted internally but never attached to this
// error, so a caller cannot distinguish a revoked credential from a
// cross-tenant probe.
var ErrNotAuthorized = errors.New("not authorized")

// Reason classifies a denial for internal logging and metrics
type Reason string

const (
	ReasonForbiddenScope     Reason = "forbidden_scope"
	ReasonCredentialRevoked  Reason = "credential_revoked"
	ReasonPrincipalSuspended Reason = "principal_suspended"
	ReasonFeatureNotGranted  Reason = "feature_not_granted"
	ReasonStoreUnavailable   Reason = "store_unavailable"
)

