package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the revocation store
type Metrics struct {
	RevocationsTotal     *prometheus.CounterVec
	ChecksTotal          *prometheus.CounterVec
	CompactionRuns       prometheus.Counter
	CompactionRemoved    prometheus.Counter
	CompactionDuration   prometheus.Histogram
	BulkRevocationsTotal prometheus.Counter
}

// NewMetrics creates and registers revocation metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RevocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trimslot_revocations_total",
				Help: "Total number of credential revocations by reason",
			},
			[]string{"reason"},
		),
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trimslot_revocation_checks_total",
				Help: "Total number of revocation membership checks",
			},
			[]string{"result"},
		),
		CompactionRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trimslot_revocation_compaction_runs_total",
				Help: "Total number of compaction sweeps",
			},
		),
		CompactionRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trimslot_revocation_compaction_removed_total",
				Help: "Total number of expired entries removed by compaction",
			},
		),
		CompactionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trimslot_revocation_compaction_duration_seconds",
				Help:    "Compaction sweep duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		BulkRevocationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trimslot_revocation_bulk_total",
				Help: "Total number of bulk (per-principal) revocation operations",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.RevocationsTotal,
			m.ChecksTotal,
			m.CompactionRuns,
			m.CompactionRemoved,
			m.CompactionDuration,
			m.BulkRevocationsTotal,
		)
	}
	return m
}

// instrumentedStore wraps a Store with metrics
type instrumentedStore struct {
	inner   Store
	metrics *Metrics
}

// WithMetrics wraps a store so every operation is counted
func WithMetrics(inner Store, metrics *Metrics) Store {
	if metrics == nil {
		return inner
	}
	return &instrumentedStore{inner: inner, metrics: metrics}
}

func (s *instrumentedStore) Revoke(ctx context.Context, fingerprint, principalID string, expiresAt time.Time, reason Reason) error {
	err := s.inner.Revoke(ctx, fingerprint, principalID, expiresAt, reason)
	if err == nil {
		s.metrics.RevocationsTotal.WithLabelValues(string(reason)).Inc()
	}
	return err
}

func (s *instrumentedStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	revoked, err := s.inner.IsRevoked(ctx, fingerprint)
	if err != nil {
		s.metrics.ChecksTotal.WithLabelValues("error").Inc()
		return revoked, err
	}
	if revoked {
		s.metrics.ChecksTotal.WithLabelValues("revoked").Inc()
	} else {
		s.metrics.ChecksTotal.WithLabelValues("clear").Inc()
	}
	return revoked, nil
}

func (s *instrumentedStore) Compact(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	removed, err := s.inner.Compact(ctx, now)
	s.metrics.CompactionRuns.Inc()
	s.metrics.CompactionDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		s.metrics.CompactionRemoved.Add(float64(removed))
	}
	return removed, err
}

func (s *instrumentedStore) RevokeAllForPrincipal(ctx context.Context, principalID string, reason Reason) ([]string, error) {
	fingerprints, err := s.inner.RevokeAllForPrincipal(ctx, principalID, reason)
	if err == nil {
		s.metrics.BulkRevocationsTotal.Inc()
		s.metrics.RevocationsTotal.WithLabelValues(string(reason)).Add(float64(len(fingerprints)))
	}
	return fingerprints, err
}

// RegisterIssued passes through when the wrapped store supports it
func (s *instrumentedStore) RegisterIssued(ctx context.Context, fingerprint, principalID string, expiresAt time.Time) error {
	registrar, ok := s.inner.(Registrar)
	if !ok {
		return fmt.Errorf("revocation: wrapped store does not register issued credentials")
	}
	return registrar.RegisterIssued(ctx, fingerprint, principalID, expiresAt)
}
