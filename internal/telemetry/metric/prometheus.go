package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every tagurl metric.
const Namespace = "tagurl"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Decode metrics
	DecodeAttempts prometheus.Counter
	DecodeResults  *prometheus.CounterVec
	DecodeKeys     prometheus.Histogram
	DecodeDuration prometheus.Histogram

	// Issue metrics
	URLsIssued     prometheus.Counter
	StationTouches *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RateLimited     prometheus.Counter

	// Key store metrics
	KeyStoreReloads *prometheus.CounterVec
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		DecodeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_attempts_total",
			Help:      "Number of tag URL decode attempts.",
		}),
		DecodeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_results_total",
			Help:      "Decode outcomes by result.",
		}, []string{"result"}),
		DecodeKeys: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "decode_keys_tried",
			Help:      "Candidate keys tried per decode.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 16},
		}),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "decode_duration_seconds",
			Help:      "Decode latency including key lookup.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}),
		URLsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "urls_issued_total",
			Help:      "Number of tag URLs issued.",
		}),
		StationTouches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "station_touches_total",
			Help:      "Station touches by result.",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Requests by protocol, method and status.",
		}, []string{"protocol", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"protocol", "method"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		KeyStoreReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keystore_reloads_total",
			Help:      "Key table reloads by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		r.DecodeAttempts,
		r.DecodeResults,
		r.DecodeKeys,
		r.DecodeDuration,
		r.URLsIssued,
		r.StationTouches,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimited,
		r.KeyStoreReloads,
	)
	return r
}

// Registerer exposes the underlying registry for extra collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveDecode records one decode. result is "ok" or an error kind label.
func (r *Registry) ObserveDecode(result string, keysTried int, seconds float64) {
	r.DecodeAttempts.Inc()
	r.DecodeResults.WithLabelValues(result).Inc()
	if keysTried > 0 {
		r.DecodeKeys.Observe(float64(keysTried))
	}
	r.DecodeDuration.Observe(seconds)
}

// IncURLsIssued counts one issued URL.
func (r *Registry) IncURLsIssued() {
	r.URLsIssued.Inc()
}

// RecordStationTouch counts one station touch.
func (r *Registry) RecordStationTouch(result string) {
	r.StationTouches.WithLabelValues(result).Inc()
}

// RecordRequest counts one request.
func (r *Registry) RecordRequest(protocol, method, status string) {
	r.RequestsTotal.WithLabelValues(protocol, method, status).Inc()
}

// ObserveRequestDuration records request latency in seconds.
func (r *Registry) ObserveRequestDuration(protocol, method string, seconds float64) {
	r.RequestDuration.WithLabelValues(protocol, method).Observe(seconds)
}

// IncRateLimited counts one rejected request.
func (r *Registry) IncRateLimited() {
	r.RateLimited.Inc()
}

// RecordKeyStoreReload counts one key table reload.
func (r *Registry) RecordKeyStoreReload(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.KeyStoreReloads.WithLabelValues(result).Inc()
}
