package authz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/policy"
	"github.com/trimslot/trimslot/pkg/revocation"
)

func fp(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

type staticGrants struct {
	grants map[string]*policy.FeatureGrant
	err    error
}

func (s *staticGrants) Get(_ context.Context, storeID, featureKey string) (*policy.FeatureGrant, error) {
	if s.err != nil {
		return nil, s.err
	}
	if g, ok := s.grants[storeID+"/"+featureKey]; ok {
		return g, nil
	}
	return nil, policy.ErrGrantNotFound
}

type failingStore struct {
	revocation.Store
}

func (failingStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func employee(t *testing.T, orgID string) *identity.Principal {
	t.Helper()
	p, err := identity.NewScoped("u-1", orgID, identity.RoleEmployee)
	require.NoError(t, err)
	return p
}

func TestAuthorizeAllow(t *testing.T) {
	gate := NewGate(revocation.NewMemoryStore(), nil, nil, nil)
	p := employee(t, "org-a")

	auth, err := gate.Authorize(context.Background(), Request{
		Principal:          p,
		ResourceOwnerOrgID: "org-a",
		Capability:         identity.CapAppointmentWrite,
	})
	require.NoError(t, err)

	orgID, ok := auth.Tenant.OrganizationID()
	require.True(t, ok)
	assert.Equal(t, "org-a", orgID)
	assert.True(t, auth.Capabilities.Has(identity.CapAppointmentWrite))
	assert.False(t, auth.Capabilities.Has(identity.CapEmployeeWrite))
}

func TestAuthorizeSuperAdminGlobal(t *testing.T) {
	gate := NewGate(revocation.NewMemoryStore(), nil, nil, nil)

	auth, err := gate.Authorize(context.Background(), Request{
		Principal:  identity.NewSuperAdmin("sa-1"),
		Capability: identity.CapOrgSettingsWrite,
	})
	require.NoError(t, err)
	assert.True(t, auth.Tenant.IsGlobal())
}

func TestAuthorizeForbiddenScope(t *testing.T) {
	gate := NewGate(revocation.NewMemoryStore(), nil, nil, nil)
	p := employee(t, "org-a")

	_, err := gate.Authorize(context.Background(), Request{
		Principal:      p,
		TenantOverride: "org-b",
		Capability:     identity.CapAppointmentRead,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthorizeRevokedCredentialAlwaysWins(t *testing.T) {
	store := revocation.NewMemoryStore()
	gate := NewGate(store, nil, nil, nil)

	fingerprint := fp("session")
	require.NoError(t, store.Revoke(context.Background(), fingerprint, "sa-1",
		time.Now().Add(time.Hour), revocation.ReasonLogout))

	// Even a super admin with a revoked credential is denied.
	_, err := gate.Authorize(context.Background(), Request{
		Principal:   identity.NewSuperAdmin("sa-1"),
		Fingerprint: fingerprint,
		Capability:  identity.CapOrgSettingsWrite,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthorizeSuspendedPrincipal(t *testing.T) {
	gate := NewGate(revocation.NewMemoryStore(), nil, nil, nil)
	p := employee(t, "org-a")
	p.Suspend()

	// The credential was never individually revoked; suspension alone denies.
	_, err := gate.Authorize(context.Background(), Request{
		Principal:          p,
		Fingerprint:        fp("never-revoked"),
		ResourceOwnerOrgID: "org-a",
		Capability:         identity.CapAppointmentRead,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthorizeFailsClosedOnStoreError(t *testing.T) {
	gate := NewGate(failingStore{}, nil, nil, nil)
	p := employee(t, "org-a")

	_, err := gate.Authorize(context.Background(), Request{
		Principal:          p,
		Fingerprint:        fp("session"),
		ResourceOwnerOrgID: "org-a",
		Capability:         identity.CapAppointmentRead,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestAuthorizeFeatureGrants(t *testing.T) {
	grants := &staticGrants{grants: map[string]*policy.FeatureGrant{
		"s-1/booking":   {StoreID: "s-1", FeatureKey: "booking", AccessType: policy.AccessCustomer},
		"s-1/inventory": {StoreID: "s-1", FeatureKey: "inventory", AccessType: policy.AccessStore},
	}}
	gate := NewGate(revocation.NewMemoryStore(), grants, nil, nil)

	customer, err := identity.NewScoped("c-1", "org-a", identity.RoleCustomer)
	require.NoError(t, err)

	t.Run("customer-facing feature allowed", func(t *testing.T) {
		_, err := gate.Authorize(context.Background(), Request{
			Principal:          customer,
			ResourceOwnerOrgID: "org-a",
			Capability:         identity.CapFeatureRead,
			StoreID:            "s-1",
			FeatureKey:         "booking",
		})
		assert.NoError(t, err)
	})

	t.Run("staff-only feature denied to customer", func(t *testing.T) {
		_, err := gate.Authorize(context.Background(), Request{
			Principal:          customer,
			ResourceOwnerOrgID: "org-a",
			Capability:         identity.CapFeatureRead,
			StoreID:            "s-1",
			FeatureKey:         "inventory",
		})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("ungranted feature denied", func(t *testing.T) {
		_, err := gate.Authorize(context.Background(), Request{
			Principal:          customer,
			ResourceOwnerOrgID: "org-a",
			Capability:         identity.CapFeatureRead,
			StoreID:            "s-1",
			FeatureKey:         "walk_in",
		})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}

func TestAuthorizeRevocationLifecycle(t *testing.T) {
	store := revocation.NewMemoryStore()
	gate := NewGate(store, nil, nil, nil)
	p := employee(t, "org-a")
	fingerprint := fp("h1")

	req := Request{
		Principal:          p,
		Fingerprint:        fingerprint,
		ResourceOwnerOrgID: "org-a",
		Capability:         identity.CapAppointmentRead,
	}
	ctx := context.Background()

	_, err := gate.Authorize(ctx, req)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, fingerprint, p.ID(),
		time.Now().Add(time.Hour), revocation.ReasonLogout))
	_, err = gate.Authorize(ctx, req)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// After the entry's own expiry passes and compaction runs, the
	// fingerprint behaves as never revoked.
	removed, err := store.Compact(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = gate.Authorize(ctx, req)
	assert.NoError(t, err)
}

func TestAuthorizeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	gate := NewGate(revocation.NewMemoryStore(), nil, nil, metrics)
	p := employee(t, "org-a")

	_, err := gate.Authorize(context.Background(), Request{
		Principal:          p,
		ResourceOwnerOrgID: "org-a",
		Capability:         identity.CapAppointmentRead,
	})
	require.NoError(t, err)

	_, err = gate.Authorize(context.Background(), Request{
		Principal:          p,
		ResourceOwnerOrgID: "org-b",
		Capability:         identity.CapAppointmentRead,
	})
	require.Error(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues("allow", "")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.DecisionsTotal.WithLabelValues("deny", "cross_tenant_access")))
}
