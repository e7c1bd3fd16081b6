// Package metrics records forecast runs with prometheus collectors on a dedicated registry.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aouyang1/go-costcast/forecast"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "costcast"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder holds the forecast collectors
type Recorder struct {
	reg *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	holdoutMAPE   *prometheus.GaugeVec
	holdoutR2     *prometheus.GaugeVec
	outliersTotal *prometheus.CounterVec
	cacheTotal    *prometheus.CounterVec
}

// New creates a recorder on its own registry. Process and go collectors are added when
// withRuntime is set.
func New(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of forecast runs",
			},
			[]string{"series", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of forecast runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"series"},
		),
		holdoutMAPE: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "holdout_mape",
				Help:      "Mean absolute percentage error of the last run on held-out rows",
			},
			[]string{"series"},
		),
		holdoutR2: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "holdout_r2",
				Help:      "Coefficient of determination of the last run on held-out rows",
			},
			[]string{"series"},
		),
		outliersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outliers_masked_total",
				Help:      "Total number of observations masked as outliers",
			},
			[]string{"series"},
		),
		cacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forecast_cache_requests_total",
				Help:      "Forecast cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveRun records a finished run of a series
func (r *Recorder) ObserveRun(series string, start time.Time, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.runsTotal.WithLabelValues(series, status).Inc()
	r.runDuration.WithLabelValues(series).Observe(time.Since(start).Seconds())
}

// SetHoldout records the held-out scores of a series. Nil scores are ignored.
func (r *Recorder) SetHoldout(series string, scores *forecast.Scores) {
	if scores == nil {
		return
	}
	r.holdoutMAPE.WithLabelValues(series).Set(scores.MAPE)
	r.holdoutR2.WithLabelValues(series).Set(scores.R2)
}

func (r *Recorder) AddOutliers(series string, n int) {
	r.outliersTotal.WithLabelValues(series).Add(float64(n))
}

func (r *Recorder) CacheHit() {
	r.cacheTotal.WithLabelValues("hit").Inc()
}

func (r *Recorder) CacheMiss() {
	r.cacheTotal.WithLabelValues("miss").Inc()
}

// Registry exposes the registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// WriteTextfile writes the registry for the node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("unable to write metrics textfile, %w", err)
	}
	return nil
}
