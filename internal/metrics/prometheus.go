// Package metrics provides Prometheus metrics for dataset loads and queries.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moviestats/internal/engine"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	loadsTotal    *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	queriesTotal  *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	datasetRows   prometheus.Gauge
	skippedRows   prometheus.Gauge
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviestats_dataset_loads_total",
				Help: "Dataset load calls by outcome (cache_hit, loaded, load_error, schema_error)",
			},
			[]string{"outcome"},
		),
		loadDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "moviestats_dataset_load_duration_seconds",
				Help:    "Duration of dataset loads that missed the cache",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		queriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "moviestats_queries_total",
				Help: "Query engine calls by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
		queryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "moviestats_query_duration_seconds",
				Help:    "Query engine call duration in seconds",
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"op"},
		),
		datasetRows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "moviestats_dataset_rows",
				Help: "Rows in the loaded dataset",
			},
		),
		skippedRows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "moviestats_dataset_skipped_rows",
				Help: "Source rows dropped by validation",
			},
		),
	}
}

// ObserveLoad implements engine.LoadObserver.
func (m *Metrics) ObserveLoad(_ string, cacheHit bool, elapsed time.Duration, err error) {
	if cacheHit {
		m.loadsTotal.WithLabelValues("cache_hit").Inc()
		return
	}
	m.loadDuration.Observe(elapsed.Seconds())
	m.loadsTotal.WithLabelValues(loadOutcome(err)).Inc()
}

// ObserveQuery records one query engine call.
func (m *Metrics) ObserveQuery(op string, elapsed time.Duration, err error) {
	m.queriesTotal.WithLabelValues(op, queryOutcome(err)).Inc()
	m.queryDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetDataset records the size of the loaded table.
func (m *Metrics) SetDataset(t *engine.MovieTable) {
	m.datasetRows.Set(float64(t.Len()))
	m.skippedRows.Set(float64(len(t.Skipped())))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func loadOutcome(err error) string {
	switch {
	case err == nil:
		return "loaded"
	case errors.Is(err, engine.ErrSchema):
		return "schema_error"
	default:
		return "load_error"
	}
}

func queryOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrInvalidRange), errors.Is(err, engine.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "error"
	}
}
