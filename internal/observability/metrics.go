package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "accident_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	RecordsLoaded    prometheus.Counter
	RecordsExcluded  prometheus.Counter
	RejectsPublished prometheus.Counter
	DashboardReady   prometheus.Gauge

	// Aggregation metrics.
	AggregationDuration *prometheus.HistogramVec // labels: kind={yearly,grouped,distribution,pairs}

	// Chart rendering metrics.
	ChartsRendered prometheus.Counter
	ChartsFailed   prometheus.Counter

	// API metrics.
	APIRequests *prometheus.CounterVec // labels: endpoint, outcome={success,bad_request,error}
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.RecordsLoaded,
		m.RecordsExcluded,
		m.RejectsPublished,
		m.DashboardReady,
		m.AggregationDuration,
		m.ChartsRendered,
		m.ChartsFailed,
		m.APIRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      help("Total accident records read from the data source."),
		}),
		RecordsExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_excluded_total",
			Help:      help("Records dropped because their timestamp could not be resolved."),
		}),
		RejectsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejects_published_total",
			Help:      help("Excluded-record reports written to the reject topic."),
		}),
		DashboardReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_ready",
			Help:      help("1 once the dashboard has been built and its charts rendered."),
		}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      help("Duration of a single statistics engine call."),
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"kind"}),
		ChartsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_rendered_total",
			Help:      help("Charts rendered to PNG."),
		}),
		ChartsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_failed_total",
			Help:      help("Charts that failed to render."),
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      help("JSON API requests by endpoint and outcome."),
		}, []string{"endpoint", "outcome"}),
	}
}
