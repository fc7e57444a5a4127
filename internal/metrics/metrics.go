package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction logging outcomes.
const (
	OutcomeReported   = "reported"
	OutcomeSuppressed = "suppressed"
	OutcomeUnresolved = "unresolved"
	OutcomeNoSink     = "no_sink"
)

// Metrics holds the Prometheus collectors for transaction logging.
type Metrics struct {
	Transactions  *prometheus.CounterVec
	Flushes       *prometheus.CounterVec
	FlushErrors   prometheus.Counter
	FlushedEvents prometheus.Counter
	DedupEntries  prometheus.Gauge
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iap_transactions_total",
			Help: "Storefront transactions processed by path and outcome",
		}, []string{"path", "outcome"}), // path: "new", "restored"

		Flushes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iap_sink_flushes_total",
			Help: "Analytics sink flushes by reason",
		}, []string{"reason"}),

		FlushErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "iap_sink_flush_errors_total",
			Help: "Analytics sink flushes that failed to write",
		}),

		FlushedEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "iap_sink_flushed_events_total",
			Help: "Events written by the analytics sink",
		}),

		DedupEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "iap_dedup_entries",
			Help: "Distinct transaction IDs held by the dedup ledger",
		}),
	}
}

// IncrementTransaction records the outcome of one logging attempt.
func (m *Metrics) IncrementTransaction(path, outcome string) {
	if m != nil {
		m.Transactions.WithLabelValues(path, outcome).Inc()
	}
}

// IncrementFlush records a sink flush and how many events it wrote.
func (m *Metrics) IncrementFlush(reason string, written int) {
	if m != nil {
		m.Flushes.WithLabelValues(reason).Inc()
		m.FlushedEvents.Add(float64(written))
	}
}

// IncrementFlushError records a failed sink flush.
func (m *Metrics) IncrementFlushError() {
	if m != nil {
		m.FlushErrors.Inc()
	}
}

// SetDedupEntries reports the ledger size.
func (m *Metrics) SetDedupEntries(n int) {
	if m != nil {
		m.DedupEntries.Set(float64(n))
	}
}
