package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	require.NotNil(t, m)

	m.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200").Inc()
	m.OrganizationsTotal.Set(3)
	m.LiveRevocations.Set(12)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["trimslot_http_requests_total"])
	assert.True(t, names["trimslot_organizations_total"])
	assert.True(t, names["trimslot_revocations_live"])
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	handler := HTTPMetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/thing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/thing", "418")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.CacheHitsTotal.WithLabelValues("revocation").Inc()

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trimslot_cache_hits_total")
}
