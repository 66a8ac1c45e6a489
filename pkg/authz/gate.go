package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/observability"
	"github.com/trimslot/trimslot/pkg/policy"
	"github.com/trimslot/trimslot/pkg/revocation"
	"github.com/trimslot/trimslot/pkg/tenant"
)

// Request is one authorization question. The request binding layer fills
// it from an already-authenticated call: Principal is mandatory,
// Fingerprint is set when a bearer credential was presented, and
// StoreID/FeatureKey are set when the operation targets a store feature.
type Request struct {
	Principal          *identity.Principal
	Fingerprint        string
	TenantOverride     string
	ResourceOwnerOrgID string
	Capability         identity.Capability
	StoreID            string
	FeatureKey         string
}

// Authorization is what an allowed request receives: the effective tenant
// context and capability set, so downstream code does not re-derive them.
type Authorization struct {
	Principal    *identity.Principal
	Tenant       tenant.Context
	Capabilities identity.CapabilitySet
}

// Gate orchestrates tenant resolution, revocation, suspension, and policy
// into a single Authorize decision. It holds no mutable state of its own;
// the revocation store is the only shared resource behind it.
type Gate struct {
	revocations revocation.Store
	grants      policy.Grants
	logger      *observability.Logger
	metrics     *Metrics
}

// NewGate creates a gate. grants may be nil when no feature-gated routes
// are served; metrics may be nil in tests.
func NewGate(revocations revocation.Store, grants policy.Grants, logger *observability.Logger, metrics *Metrics) *Gate {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Gate{
		revocations: revocations,
		grants:      grants,
		logger:      logger,
		metrics:     metrics,
	}
}

// Authorize evaluates the request. On success it returns the effective
// authorization; on any denial or infrastructure failure it returns
// ErrNotAuthorized and nothing else. Checks run in a fixed order and
// short-circuit: scope, revocation, suspension, then policy. Revocation
// store unavailability denies; authorization never fails open.
func (g *Gate) Authorize(ctx context.Context, req Request) (*Authorization, error) {
	if req.Principal == nil {
		return nil, g.deny(ctx, req, ReasonForbiddenScope, errors.New("no principal"))
	}

	tc, err := tenant.Resolve(req.Principal, req.TenantOverride)
	if err != nil {
		return nil, g.deny(ctx, req, ReasonForbiddenScope, err)
	}

	if req.Fingerprint != "" {
		revoked, err := g.revocations.IsRevoked(ctx, req.Fingerprint)
		if err != nil {
			return nil, g.deny(ctx, req, ReasonStoreUnavailable, err)
		}
		if revoked {
			return nil, g.deny(ctx, req, ReasonCredentialRevoked, nil)
		}
	}

	if !req.Principal.IsActive() {
		return nil, g.deny(ctx, req, ReasonPrincipalSuspended, nil)
	}

	feature, err := g.loadFeature(ctx, req)
	if err != nil {
		if errors.Is(err, policy.ErrGrantNotFound) {
			return nil, g.deny(ctx, req, ReasonFeatureNotGranted, nil)
		}
		return nil, g.deny(ctx, req, ReasonStoreUnavailable, err)
	}

	decision := policy.Decide(req.Principal, tc, req.ResourceOwnerOrgID, req.Capability, feature)
	if !decision.Allowed {
		return nil, g.deny(ctx, req, Reason(decision.Reason), nil)
	}

	if g.metrics != nil {
		g.metrics.DecisionsTotal.WithLabelValues("allow", "").Inc()
	}
	return &Authorization{
		Principal:    req.Principal,
		Tenant:       tc,
		Capabilities: identity.CapabilitiesForRole(req.Principal.Role()),
	}, nil
}

// loadFeature fetches the grant for a feature-targeted request. A request
// with no FeatureKey carries no feature and loads nothing.
func (g *Gate) loadFeature(ctx context.Context, req Request) (*policy.FeatureGrant, error) {
	if req.FeatureKey == "" {
		return nil, nil
	}
	if g.grants == nil {
		return nil, fmt.Errorf("feature %q requested but no grant source configured", req.FeatureKey)
	}
	return g.grants.Get(ctx, req.StoreID, req.FeatureKey)
}

// deny records the internal reason and returns the opaque boundary error
func (g *Gate) deny(ctx context.Context, req Request, reason Reason, cause error) error {
	if g.metrics != nil {
		g.metrics.DecisionsTotal.WithLabelValues("deny", string(reason)).Inc()
	}

	logger := g.logger.WithField("reason", string(reason))
	if req.Principal != nil {
		logger = logger.WithField("principal_id", req.Principal.ID())
	}
	if requestID := observability.GetRequestID(ctx); requestID != "" {
		logger = logger.WithField("request_id", requestID)
	}
	if cause != nil {
		logger = logger.WithError(cause)
	}
	if reason == ReasonStoreUnavailable {
		logger.Error("authorization failed closed")
	} else {
		logger.Info("authorization denied")
	}
	return ErrNotAuthorized
}
