package authz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trimslot/trimslot/pkg/contextkeys"
	"github.com/trimslot/trimslot/pkg/credentials"
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/revocation"
	"github.com/trimslot/trimslot/pkg/tenant"
)

type memPrincipals struct {
	byID map[string]*identity.Principal
}

func (m *memPrincipals) Get(_ context.Context, id string) (*identity.Principal, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, identity.ErrNotFound
}

type memOrgs struct {
	bySlug map[string]*tenant.Organization
}

func (m *memOrgs) GetBySlug(_ context.Context, slug string) (*tenant.Organization, error) {
	if o, ok := m.bySlug[slug]; ok {
		return o, nil
	}
	return nil, tenant.ErrNotFound
}

type gatewayFixture struct {
	signer      *credentials.Signer
	revocations *revocation.MemoryStore
	principals  *memPrincipals
	router      *mux.Router
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	revocations := revocation.NewMemoryStore()
	signer, err := credentials.NewSigner([]byte("test-secret"), time.Hour, revocations)
	require.NoError(t, err)

	principals := &memPrincipals{byID: map[string]*identity.Principal{}}
	orgs := &memOrgs{bySlug: map[string]*tenant.Organization{
		"barber-a": {ID: "org-a", Slug: "barber-a"},
		"barber-b": {ID: "org-b", Slug: "barber-b"},
	}}

	gate := NewGate(revocations, nil, nil, nil)
	authn := NewAuthenticator(signer, principals)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, _ := r.Context().Value(contextkeys.TenantKey).(tenant.Context)
		fmt.Fprintf(w, "tenant=%s", tc.String())
	})

	router := mux.NewRouter()
	appointments := router.PathPrefix("/api/v1/orgs/{slug}/appointments").Subrouter()
	appointments.Use(authn.Middleware)
	appointments.Use(gate.Require(RouteSpec{
		Capability: identity.CapAppointmentRead,
		OrgSlugVar: "slug",
	}, orgs))
	appointments.HandleFunc("", handler).Methods(http.MethodGet)

	return &gatewayFixture{
		signer:      signer,
		revocations: revocations,
		principals:  principals,
		router:      router,
	}
}

func (f *gatewayFixture) addPrincipal(t *testing.T, p *identity.Principal) string {
	t.Helper()
	f.principals.byID[p.ID()] = p
	token, err := f.signer.Issue(context.Background(), p)
	require.NoError(t, err)
	return token
}

func (f *gatewayFixture) get(path, token, override string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if override != "" {
		req.Header.Set(OrgOverrideHeader, override)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareMissingToken(t *testing.T) {
	f := newGatewayFixture(t)
	rec := f.get("/api/v1/orgs/barber-a/appointments", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareGarbageToken(t *testing.T) {
	f := newGatewayFixture(t)
	rec := f.get("/api/v1/orgs/barber-a/appointments", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareEmployeeOwnOrg(t *testing.T) {
	f := newGatewayFixture(t)
	p, err := identity.NewScoped("u-1", "org-a", identity.RoleEmployee)
	require.NoError(t, err)
	token := f.addPrincipal(t, p)

	rec := f.get("/api/v1/orgs/barber-a/appointments", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant=org-a", rec.Body.String())
}

func TestMiddlewareEmployeeCrossOrg(t *testing.T) {
	f := newGatewayFixture(t)
	p, err := identity.NewScoped("u-1", "org-a", identity.RoleEmployee)
	require.NoError(t, err)
	token := f.addPrincipal(t, p)

	rec := f.get("/api/v1/orgs/barber-b/appointments", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	// The body never explains why.
	assert.NotContains(t, rec.Body.String(), "tenant")
	assert.NotContains(t, rec.Body.String(), "cross")
}

func TestMiddlewareUnknownSlugLooksLikeDenial(t *testing.T) {
	f := newGatewayFixture(t)
	p, err := identity.NewScoped("u-1", "org-a", identity.RoleEmployee)
	require.NoError(t, err)
	token := f.addPrincipal(t, p)

	cross := f.get("/api/v1/orgs/barber-b/appointments", token, "")
	missing := f.get("/api/v1/orgs/no-such-org/appointments", token, "")
	assert.Equal(t, cross.Code, missing.Code)
	assert.Equal(t, cross.Body.String(), missing.Body.String())
}

func TestMiddlewareRevokedToken(t *testing.T) {
	f := newGatewayFixture(t)
	p, err := identity.NewScoped("u-1", "org-a", identity.RoleEmployee)
	require.NoError(t, err)
	token := f.addPrincipal(t, p)

	require.NoError(t, f.revocations.Revoke(context.Background(),
		credentials.Fingerprint(token), p.ID(), time.Now().Add(time.Hour), revocation.ReasonLogout))

	rec := f.get("/api/v1/orgs/barber-a/appointments", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareSuspendedPrincipal(t *testing.T) {
	f := newGatewayFixture(t)
	p, err := identity.NewScoped("u-1", "org-a", identity.RoleEmployee)
	require.NoError(t, err)
	token := f.addPrincipal(t, p)
	p.Suspend()

	rec := f.get("/api/v1/orgs/barber-a/appointments", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareSuperAdminOverride(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.addPrincipal(t, identity.NewSuperAdmin("sa-1"))

	rec := f.get("/api/v1/orgs/barber-b/appointments", token, "org-b")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant=org-b", rec.Body.String())
}

func TestMiddlewareSuperAdminNoOverrideIsGlobal(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.addPrincipal(t, identity.NewSuperAdmin("sa-1"))

	rec := f.get("/api/v1/orgs/barber-a/appointments", token, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant=global", rec.Body.String())
}
