package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/trimslot/trimslot/pkg/contextkeys"
	"github.com/trimslot/trimslot/pkg/credentials"
	"github.com/trimslot/trimslot/pkg/httputil"
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/tenant"
)

// OrgOverrideHeader lets a super admin act within one organization's scope
const OrgOverrideHeader = "X-Org-Override"

// Principals loads the current principal record. The database copy is
// authoritative for status; token claims only identify who to load.
type Principals interface {
	Get(ctx context.Context, id string) (*identity.Principal, error)
}

// OrgLocator resolves route organization slugs to organizations
type OrgLocator interface {
	GetBySlug(ctx context.Context, slug string) (*tenant.Organization, error)
}

// Authenticator verifies bearer tokens and loads the presented principal
// into the request context along with the credential fingerprint.
type Authenticator struct {
	signer     *credentials.Signer
	principals Principals
}

// NewAuthenticator creates an authenticator
func NewAuthenticator(signer *credentials.Signer, principals Principals) *Authenticator {
	return &Authenticator{signer: signer, principals: principals}
}

// Middleware authenticates the request. Any failure, including a valid
// token for a principal the store cannot load, produces the same 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.WriteUnauthorized(w, ErrNotAuthorized.Error())
			return
		}

		claims, err := a.signer.Verify(token)
		if err != nil {
			httputil.WriteUnauthorized(w, ErrNotAuthorized.Error())
			return
		}

		principal, err := a.principals.Get(r.Context(), claims.Subject)
		if err != nil {
			httputil.WriteUnauthorized(w, ErrNotAuthorized.Error())
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		ctx = contextkeys.WithFingerprint(ctx, credentials.Fingerprint(token))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

// RouteSpec describes what a gated route demands. OrgSlugVar names the mux
// path variable carrying the resource organization's slug; when empty the
// resource is owned by the caller's own (or overridden) organization.
// FeatureKey gates the route behind a store feature; StoreIDVar names the
// mux variable carrying the store id for the grant lookup.
type RouteSpec struct {
	Capability identity.Capability
	OrgSlugVar string
	FeatureKey string
	StoreIDVar string
}

// Require returns middleware that authorizes every request against the
// gate. On allow it stashes the effective tenant context and capability
// set; every denial is a uniform 403.
func (g *Gate) Require(spec RouteSpec, orgs OrgLocator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, _ := ctx.Value(contextkeys.PrincipalKey).(*identity.Principal)

			req := Request{
				Principal:      principal,
				Fingerprint:    contextkeys.GetFingerprint(ctx),
				TenantOverride: r.Header.Get(OrgOverrideHeader),
				Capability:     spec.Capability,
				FeatureKey:     spec.FeatureKey,
			}

			vars := mux.Vars(r)
			if spec.StoreIDVar != "" {
				req.StoreID = vars[spec.StoreIDVar]
			}
			if spec.OrgSlugVar != "" {
				slug := vars[spec.OrgSlugVar]
				org, err := orgs.GetBySlug(ctx, slug)
				if err != nil {
					// Unknown slugs and lookup failures are indistinguishable
					// from denials; organization existence is not disclosed.
					httputil.WriteForbidden(w, ErrNotAuthorized.Error())
					return
				}
				req.ResourceOwnerOrgID = org.ID
			} else if principal != nil {
				if orgID, ok := principal.OrganizationID(); ok {
					req.ResourceOwnerOrgID = orgID
				}
			}

			authorization, err := g.Authorize(ctx, req)
			if err != nil {
				httputil.WriteForbidden(w, ErrNotAuthorized.Error())
				return
			}

			ctx = contextkeys.WithTenant(ctx, authorization.Tenant)
			ctx = contextkeys.WithCapabilities(ctx, authorization.Capabilities)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
