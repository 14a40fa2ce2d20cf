package signing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sigvault/sigvault/policy"
)

// Metrics records signing outcomes
type Metrics struct {
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the signing metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sigvault",
				Name:      "sign_decisions_total",
				Help:      "Number of signing decisions by outcome and reason code.",
			},
			[]string{"outcome", "reason"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sigvault",
				Name:      "sign_duration_seconds",
				Help:      "Duration of signing and check requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.decisions, m.duration)
	return m
}

func (m *Metrics) observeDecision(d policy.Decision) {
	if m == nil {
		return
	}
	outcome := "denied"
	if d.Allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues(outcome, string(d.Code)).Inc()
}

func (m *Metrics) observeError() {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues("error", "").Inc()
}

func (m *Metrics) observeDuration(operation string, started time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
