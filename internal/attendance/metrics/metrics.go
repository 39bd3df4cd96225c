package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance module.
type Metrics struct {
	// Claim attempts by outcome (success or the rejecting error code)
	ClaimOutcome *prometheus.CounterVec

	// Claim latency including issuer round trips
	ClaimLatency prometheus.Histogram

	// Units minted, including orphans
	BadgesMinted prometheus.Counter

	// Units minted but never transferred to the student
	OrphanedMints prometheus.Counter

	// Verification lookups by outcome
	VerificationOutcome *prometheus.CounterVec

	EventsCreated prometheus.Counter

	// Events that fell back to a placeholder collection id
	CollectionFallbacks prometheus.Counter

	// Attendance window transitions by target status
	AttendanceTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all attendance metrics registered.
func New() *Metrics {
	return &Metrics{
		ClaimOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpass_claims_total",
			Help: "Total badge claim attempts by outcome",
		}, []string{"outcome"}),

		ClaimLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "proofpass_claim_duration_seconds",
			Help:    "Duration of badge claims including upload, mint and transfer",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		BadgesMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proofpass_badges_minted_total",
			Help: "Total badge units minted on the ledger",
		}),

		OrphanedMints: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proofpass_badges_orphaned_total",
			Help: "Total badge units minted whose transfer to the student failed",
		}),

		VerificationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpass_verifications_total",
			Help: "Total badge verifications by outcome",
		}, []string{"outcome"}),

		EventsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proofpass_events_created_total",
			Help: "Total events created",
		}),

		CollectionFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proofpass_collection_fallbacks_total",
			Help: "Total events created with a placeholder collection id after provisioning failed",
		}),

		AttendanceTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofpass_attendance_transitions_total",
			Help: "Total attendance window transitions by target status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncClaimOutcome(outcome string) {
	if m != nil {
		m.ClaimOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveClaimLatency(d time.Duration) {
	if m != nil {
		m.ClaimLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncMinted() {
	if m != nil {
		m.BadgesMinted.Inc()
	}
}

func (m *Metrics) IncOrphaned() {
	if m != nil {
		m.OrphanedMints.Inc()
	}
}

func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.VerificationOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncEventsCreated() {
	if m != nil {
		m.EventsCreated.Inc()
	}
}

func (m *Metrics) IncCollectionFallback() {
	if m != nil {
		m.CollectionFallbacks.Inc()
	}
}

func (m *Metrics) IncAttendanceTransition(status string) {
	if m != nil {
		m.AttendanceTransitions.WithLabelValues(status).Inc()
	}
}
