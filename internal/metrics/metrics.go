// Package metrics exposes Prometheus instrumentation for scans and the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcome labels
const (
	ResultDetected = "detected"
	ResultClean    = "clean"
	ResultNoData   = "no_data"
	ResultError    = "error"
)

// Recorder holds every collector, registered on its own registry
type Recorder struct {
	registry  *prometheus.Registry
	namespace string

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
	ProviderErrors   *prometheus.CounterVec
	ZonesDetected    prometheus.Counter
	ScanInFlight     prometheus.Gauge
	HTTPDuration     *prometheus.HistogramVec
}

// New creates a Recorder. An empty namespace defaults to "vdflow".
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "vdflow"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry:  reg,
		namespace: namespace,
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "analyses_total",
			Help:      "Ticker analyses by outcome",
		}, []string{"result"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "analysis_duration_seconds",
			Help:      "Fetch plus analysis time per ticker",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Snapshot cache lookups by outcome",
		}, []string{"outcome"}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Market data fetch failures by retryability",
		}, []string{"retryable"}),
		ZonesDetected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "zones_detected_total",
			Help:      "Accumulation zones reported across all analyses",
		}),
		ScanInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "in_flight",
			Help:      "Tickers currently being analyzed",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// Nil-safe helpers so callers can run without metrics.

func (r *Recorder) ObserveAnalysis(result string, elapsed time.Duration, zones int) {
	if r == nil {
		return
	}
	r.AnalysesTotal.WithLabelValues(result).Inc()
	r.AnalysisDuration.Observe(elapsed.Seconds())
	if zones > 0 {
		r.ZonesDetected.Add(float64(zones))
	}
}

func (r *Recorder) CacheHit() {
	if r != nil {
		r.CacheLookups.WithLabelValues("hit").Inc()
	}
}

func (r *Recorder) CacheMiss() {
	if r != nil {
		r.CacheLookups.WithLabelValues("miss").Inc()
	}
}

func (r *Recorder) ProviderError(retryable bool) {
	if r == nil {
		return
	}
	label := "false"
	if retryable {
		label = "true"
	}
	r.ProviderErrors.WithLabelValues(label).Inc()
}

func (r *Recorder) InFlight(delta float64) {
	if r != nil {
		r.ScanInFlight.Add(delta)
	}
}

func (r *Recorder) ObserveHTTP(route, status string, elapsed time.Duration) {
	if r != nil {
		r.HTTPDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
	}
}

// WatchCacheEntries exports size() as the in-process cache entry gauge.
// Call it once per Recorder.
func (r *Recorder) WatchCacheEntries(size func() int) {
	if r == nil {
		return
	}
	promauto.With(r.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Entries held by the in-memory snapshot cache",
	}, func() float64 { return float64(size()) })
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
