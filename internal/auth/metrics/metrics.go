// Package metrics exposes the service's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeDenied   = "denied"
	OutcomeMismatch = "mismatch"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the credential-flow counters. A nil *Metrics is a no-op so
// tests can leave it out.
type Metrics struct {
	logins    *prometheus.CounterVec
	refreshes *prometheus.CounterVec
	revokes   *prometheus.CounterVec
}

// New registers the counters on the given registerer (use
// prometheus.DefaultRegisterer in main).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keywarden",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keywarden",
			Name:      "refreshes_total",
			Help:      "Credential rotations by outcome.",
		}, []string{"outcome"}),
		revokes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keywarden",
			Name:      "revokes_total",
			Help:      "Session revocations by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Revoke(outcome string) {
	if m == nil {
		return
	}
	m.revokes.WithLabelValues(outcome).Inc()
}
