package authz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the authorization gate
type Metrics struct {
	DecisionsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers gate metrics. The reason label is empty
// for allows and carries the internal deny reason otherwise.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trimslot_authorize_decisions_total",
				Help: "Total number of authorization decisions by outcome and internal reason",
			},
			[]string{"outcome", "reason"},
		),
	}
	if registry != nil {
		registry.MustRegister(m.DecisionsTotal)
	}
	return m
}
