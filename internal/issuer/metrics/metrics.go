package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for calls to the credential issuer.
type Metrics struct {
	// Issuer call latency by operation and outcome
	CallLatency *prometheus.HistogramVec

	// Calls rejected while the ledger breaker is open
	BreakerRejected *prometheus.CounterVec

	// 1 while the ledger breaker is open
	BreakerOpen prometheus.Gauge
}

// New creates a new Metrics instance with all issuer metrics registered.
func New() *Metrics {
	return &Metrics{
		CallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proofpass_issuer_call_duration_seconds",
			Help:    "Duration of credential issuer calls by operation and outcome",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "outcome"}), // outcome: "ok", "error", "timeout"

		BreakerRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpass_issuer_breaker_rejected_total",
			Help: "Total issuer calls rejected by the open circuit breaker",
		}, []string{"operation"}),

		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "proofpass_issuer_breaker_open",
			Help: "Whether the ledger circuit breaker is open (1) or closed (0)",
		}),
	}
}

func (m *Metrics) ObserveCall(operation, outcome string, d time.Duration) {
	if m != nil {
		m.CallLatency.WithLabelValues(operation, outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) IncBreakerRejected(operation string) {
	if m != nil {
		m.BreakerRejected.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
