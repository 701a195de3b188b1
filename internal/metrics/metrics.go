package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. Each instance owns
// its registry so tests can build fresh ones.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	composeDuration   prometheus.Histogram
	eventsPlaced      prometheus.Counter
	eventsRejected    prometheus.Counter
	icsFetches        *prometheus.CounterVec
	refreshRuns       *prometheus.CounterVec
	storedEvents      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelinecal_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timelinecal_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		composeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timelinecal_compose_duration_seconds",
			Help:    "Time spent laying out one timeline frame.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		eventsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelinecal_events_placed_total",
			Help: "Events that received geometry.",
		}),
		eventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timelinecal_events_rejected_total",
			Help: "Events dropped because they end before they start.",
		}),
		icsFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelinecal_ics_fetches_total",
			Help: "ICS fetches by source and result (fresh, not_modified, stale, error).",
		}, []string{"source", "result"}),
		refreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timelinecal_refresh_runs_total",
			Help: "Event source reloads by result.",
		}, []string{"result"}),
		storedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timelinecal_stored_events",
			Help: "Events currently held in memory.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.composeDuration,
		m.eventsPlaced,
		m.eventsRejected,
		m.icsFetches,
		m.refreshRuns,
		m.storedEvents,
	)

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCompose records one layout run.
func (m *Metrics) ObserveCompose(d time.Duration, placed, rejected int) {
	if m == nil {
		return
	}
	m.composeDuration.Observe(d.Seconds())
	m.eventsPlaced.Add(float64(placed))
	m.eventsRejected.Add(float64(rejected))
}

// ICSFetch counts one fetch outcome.
func (m *Metrics) ICSFetch(source, result string) {
	if m == nil {
		return
	}
	m.icsFetches.WithLabelValues(source, result).Inc()
}

// Refresh counts one reload and records the resulting event count.
func (m *Metrics) Refresh(err error, stored int) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshRuns.WithLabelValues(result).Inc()
	m.storedEvents.Set(float64(stored))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Instrument wraps next, labelling samples with route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
