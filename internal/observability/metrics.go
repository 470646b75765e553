package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "snow_flow"

// Metrics holds the Prometheus counters, histograms, and gauges for the chart pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ChartsProduced   prometheus.Counter
	RequestsSkipped  *prometheus.CounterVec // labels: reason={invalid,no_snow_sites,no_snow_data,no_flow_data}
	BuildErrors      prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Chart building metrics.
	ChartBuildDuration prometheus.Histogram
	SeriesLoads        *prometheus.CounterVec // labels: element, outcome={success,not_found,error}
	SeriesCache        *prometheus.CounterVec // labels: element, result={hit,miss,stale}
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total chart requests read from the source topic.",
		}),
		ChartsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_produced_total",
			Help:      "Total charts written to the sink topic.",
		}),
		RequestsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_skipped_total",
			Help:      "Chart requests that produced no chart, by reason.",
		}, []string{"reason"}),
		BuildErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_errors_total",
			Help:      "Total chart build failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-build-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ChartBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_build_duration_seconds",
			Help:      "Time to load site records and assemble one chart.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		SeriesLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_loads_total",
			Help:      "Site record loads by element and outcome.",
		}, []string{"element", "outcome"}),
		SeriesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_cache_total",
			Help:      "Site record cache lookups by element and result.",
		}, []string{"element", "result"}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ChartsProduced,
		m.RequestsSkipped,
		m.BuildErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ChartBuildDuration,
		m.SeriesLoads,
		m.SeriesCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
