package authz

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/trimslot/trimslot/pkg/contextkeys"
	"github.com/trimslot/trimslot/pkg/httputil"
	"github.com/trimslot/trimslot/pkg/identity"
	"github.com/trimslot/trimslot/pkg/policy"
	"github.com/trimslot/trimslot/pkg/revocation"
	"github.com/trimslot/trimslot/pkg/tenant"
)

// GrantInvalidator drops cached feature grants after mutations
type GrantInvalidator interface {
	Invalidate(storeID, featureKey string)
}

// StoreDirectory resolves and provisions tenant stores. Implemented by
// tenant.Service.
type StoreDirectory interface {
	StoreOrganization(ctx context.Context, storeID string) (string, error)
	CreateStore(ctx context.Context, organizationID, name string) (*tenant.Store, error)
}

// AdminHandlers exposes the administrative surface: revocations,
// per-principal bans, store provisioning, and feature-grant management.
// The route-level gate only proves the caller holds the admin capability
// inside its own tenant; every handler re-authorizes against the
// organization owning its target, so an organization admin can never
// reach another tenant's principals or stores.
type AdminHandlers struct {
	gate        *Gate
	revocations revocation.Store
	principals  *identity.Store
	grants      *policy.Store
	stores      StoreDirectory
	cache       GrantInvalidator
}

// NewAdminHandlers creates the admin handler set. cache may be nil when no
// grant cache is in front of the store.
func NewAdminHandlers(gate *Gate, revocations revocation.Store, principals *identity.Store, grants *policy.Store, stores StoreDirectory, cache GrantInvalidator) *AdminHandlers {
	return &AdminHandlers{
		gate:        gate,
		revocations: revocations,
		principals:  principals,
		grants:      grants,
		stores:      stores,
		cache:       cache,
	}
}

// Register mounts the admin routes on the router
func (h *AdminHandlers) Register(router *mux.Router) {
	router.HandleFunc("/revocations", h.Revoke).Methods(http.MethodPost)
	router.HandleFunc("/principals/{id}/revoke-all", h.RevokeAllForPrincipal).Methods(http.MethodPost)
	router.HandleFunc("/orgs/{orgId}/stores", h.CreateStore).Methods(http.MethodPost)
	router.HandleFunc("/stores/{storeId}/features", h.ListFeatureGrants).Methods(http.MethodGet)
	router.HandleFunc("/stores/{storeId}/features/{key}", h.GrantFeature).Methods(http.MethodPut)
	router.HandleFunc("/stores/{storeId}/features/{key}", h.RevokeFeature).Methods(http.MethodDelete)
}

// authorizeTarget runs the gate against the organization owning the
// operation's target. ownerOrgID is empty only when the target itself is
// tenantless (a super-admin principal), which below-super-admin callers
// can never cover.
func (h *AdminHandlers) authorizeTarget(w http.ResponseWriter, r *http.Request, ownerOrgID string) bool {
	ctx := r.Context()
	principal, _ := ctx.Value(contextkeys.PrincipalKey).(*identity.Principal)
	_, err := h.gate.Authorize(ctx, Request{
		Principal:          principal,
		Fingerprint:        contextkeys.GetFingerprint(ctx),
		ResourceOwnerOrgID: ownerOrgID,
		Capability:         identity.CapOrgSettingsWrite,
	})
	if err != nil {
		httputil.WriteForbidden(w, ErrNotAuthorized.Error())
		return false
	}
	return true
}

// principalOrg resolves the organization owning a principal. A missing
// principal and a cross-tenant principal are indistinguishable to the
// caller; principal existence is not disclosed.
func (h *AdminHandlers) principalOrg(w http.ResponseWriter, r *http.Request, principalID string) (string, bool) {
	target, err := h.principals.Get(r.Context(), principalID)
	if errors.Is(err, identity.ErrNotFound) {
		httputil.WriteForbidden(w, ErrNotAuthorized.Error())
		return "", false
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return "", false
	}
	orgID, _ := target.OrganizationID()
	return orgID, true
}

// storeOrg resolves the organization owning a store, with the same
// non-disclosure as principalOrg.
func (h *AdminHandlers) storeOrg(w http.ResponseWriter, r *http.Request, storeID string) (string, bool) {
	orgID, err := h.stores.StoreOrganization(r.Context(), storeID)
	if errors.Is(err, tenant.ErrStoreNotFound) {
		httputil.WriteForbidden(w, ErrNotAuthorized.Error())
		return "", false
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return "", false
	}
	return orgID, true
}

func parseReason(raw string) (revocation.Reason, bool) {
	switch revocation.Reason(raw) {
	case revocation.ReasonLogout, revocation.ReasonBan, revocation.ReasonRotation:
		return revocation.Reason(raw), true
	}
	return "", false
}

type revokeRequest struct {
	Fingerprint string    `json:"fingerprint"`
	PrincipalID string    `json:"principal_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Reason      string    `json:"reason"`
}

// Revoke handles POST /revocations
func (h *AdminHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Fingerprint, "fingerprint") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.PrincipalID, "principal_id") {
		return
	}
	reason, ok := parseReason(req.Reason)
	if !ok {
		httputil.WriteValidationError(w, "reason must be one of logout, ban, rotation")
		return
	}

	orgID, ok := h.principalOrg(w, r, req.PrincipalID)
	if !ok {
		return
	}
	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	err := h.revocations.Revoke(r.Context(), req.Fingerprint, req.PrincipalID, req.ExpiresAt, reason)
	if errors.Is(err, revocation.ErrInvalidExpiry) || errors.Is(err, revocation.ErrInvalidFingerprint) {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, map[string]string{"fingerprint": req.Fingerprint})
}

type revokeAllRequest struct {
	Reason string `json:"reason"`
}

// RevokeAllForPrincipal handles POST /principals/{id}/revoke-all. It
// suspends the principal, which is the authoritative kill-switch, and then
// revokes every registered outstanding credential so that already-issued
// tokens die immediately rather than at their next status load.
func (h *AdminHandlers) RevokeAllForPrincipal(w http.ResponseWriter, r *http.Request) {
	principalID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req revokeAllRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	reason, ok := parseReason(req.Reason)
	if !ok {
		httputil.WriteValidationError(w, "reason must be one of logout, ban, rotation")
		return
	}

	orgID, ok := h.principalOrg(w, r, principalID)
	if !ok {
		return
	}
	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	if reason == revocation.ReasonBan {
		if err := h.principals.SetStatus(r.Context(), principalID, identity.StatusSuspended); err != nil {
			httputil.WriteInternalError(w, r, err)
			return
		}
	}

	fingerprints, err := h.revocations.RevokeAllForPrincipal(r.Context(), principalID, reason)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"principal_id": principalID,
		"revoked":      len(fingerprints),
	})
}

type createStoreRequest struct {
	Name string `json:"name"`
}

// CreateStore handles POST /orgs/{orgId}/stores
func (h *AdminHandlers) CreateStore(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathStringOrError(w, r, "orgId")
	if !ok {
		return
	}

	var req createStoreRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	store, err := h.stores.CreateStore(r.Context(), orgID, req.Name)
	var limitErr *tenant.LimitExceededError
	if errors.As(err, &limitErr) {
		httputil.WriteError(w, http.StatusConflict, limitErr)
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteCreated(w, store)
}

type grantFeatureRequest struct {
	AccessType policy.AccessType `json:"access_type"`
}

// GrantFeature handles PUT /stores/{storeId}/features/{key}
func (h *AdminHandlers) GrantFeature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	storeID, featureKey := vars["storeId"], vars["key"]

	var req grantFeatureRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	orgID, ok := h.storeOrg(w, r, storeID)
	if !ok {
		return
	}
	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	err := h.grants.Grant(r.Context(), storeID, featureKey, req.AccessType)
	if errors.Is(err, policy.ErrInvalidAccessType) {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(storeID, featureKey)
	}
	httputil.WriteSuccess(w, map[string]string{
		"store_id":    storeID,
		"feature_key": featureKey,
		"access_type": string(req.AccessType),
	})
}

// RevokeFeature handles DELETE /stores/{storeId}/features/{key}
func (h *AdminHandlers) RevokeFeature(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	storeID, featureKey := vars["storeId"], vars["key"]

	orgID, ok := h.storeOrg(w, r, storeID)
	if !ok {
		return
	}
	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	err := h.grants.Revoke(r.Context(), storeID, featureKey)
	if errors.Is(err, policy.ErrGrantNotFound) {
		httputil.WriteNotFoundError(w, "feature grant not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(storeID, featureKey)
	}
	httputil.WriteNoContent(w)
}

// ListFeatureGrants handles GET /stores/{storeId}/features
func (h *AdminHandlers) ListFeatureGrants(w http.ResponseWriter, r *http.Request) {
	storeID, ok := httputil.ParsePathStringOrError(w, r, "storeId")
	if !ok {
		return
	}

	orgID, ok := h.storeOrg(w, r, storeID)
	if !ok {
		return
	}
	if !h.authorizeTarget(w, r, orgID) {
		return
	}

	grants, err := h.grants.ListForStore(r.Context(), storeID)
	if err != nil {
		httputil.WriteInternalError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"store_id": storeID,
		"features": grants,
	})
}
