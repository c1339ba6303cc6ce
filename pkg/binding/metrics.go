package binding

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied   = "applied"
	outcomeFailed    = "failed"
	outcomeDiscarded = "discarded"
)

// Metrics are the binding service collectors. A nil *Metrics records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	rows          *prometheus.GaugeVec
	bindings      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "okview_table_fetches_total",
				Help: "Table fetches by tag and outcome (applied, failed, discarded).",
			},
			[]string{"tag", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "okview_table_fetch_duration_seconds",
				Help:    "Time spent in the table fetch backend.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tag"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "okview_table_rows",
				Help: "Rows in the most recently applied fetch per tag.",
			},
			[]string{"tag"},
		),
		bindings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "okview_table_bindings",
				Help: "Scopes currently bound to a table resource.",
			},
		),
	}
	reg.MustRegister(m.fetches, m.fetchDuration, m.rows, m.bindings)
	return m
}

func (m *Metrics) fetched(tag, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(tag, outcome).Inc()
	m.fetchDuration.WithLabelValues(tag).Observe(seconds)
}

func (m *Metrics) setRows(tag string, n int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues(tag).Set(float64(n))
}

func (m *Metrics) bound(delta float64) {
	if m == nil {
		return
	}
	m.bindings.Add(delta)
}

// ObserveFetch records a fetch made outside a binding, such as a console
// table request. rows is only recorded for successful fetches.
func (m *Metrics) ObserveFetch(tag string, rows int, err error, took time.Duration) {
	if err != nil {
		m.fetched(tag, outcomeFailed, took.Seconds())
		return
	}
	m.fetched(tag, outcomeApplied, took.Seconds())
	m.setRows(tag, rows)
}
