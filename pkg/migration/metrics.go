package migration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the orchestrator's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	tables        *prometheus.CounterVec
	tableDuration *prometheus.HistogramVec
	rows          prometheus.Counter
	statements    *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// tables counts processed tables by operation and outcome.
		tables: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbsync_tables_total",
				Help: "Tables processed, by operation and status",
			},
			[]string{"operation", "status"},
		),
		tableDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbsync_table_duration_seconds",
				Help:    "Time spent on a single table",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"operation"},
		),
		rows: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dbsync_rows_copied_total",
				Help: "Rows inserted into target tables by migrations",
			},
		),
		statements: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbsync_statements_total",
				Help: "Script statements executed by imports, by status",
			},
			[]string{"status"},
		),
		runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbsync_runs_total",
				Help: "Finished operations, by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func (m *Metrics) observeTable(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.tables.WithLabelValues(op, outcome(err)).Inc()
	m.tableDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) addRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rows.Add(float64(n))
}

func (m *Metrics) observeStatement(err error) {
	if m == nil {
		return
	}
	m.statements.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) observeRun(op, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(op, status).Inc()
}
