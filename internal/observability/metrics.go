package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	quotesTotal       prometheus.Counter
	flooredLinesTotal prometheus.Counter
	giftCardChecks    *prometheus.CounterVec
	promoCacheLookups *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearhaus_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gearhaus_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	quotes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearhaus_quotes_total",
		Help: "Price quotes computed.",
	})
	floored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearhaus_floored_lines_total",
		Help: "Quote lines clamped at the cost price floor.",
	})
	giftCardChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearhaus_giftcard_checks_total",
		Help: "Gift card balance checks by resulting state.",
	}, []string{"state"})
	promoLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearhaus_promotion_snapshot_lookups_total",
		Help: "Promotion snapshot cache lookups by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(requests, duration, quotes, floored, giftCardChecks, promoLookups)
	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:     requests,
		requestDuration:   duration,
		quotesTotal:       quotes,
		flooredLinesTotal: floored,
		giftCardChecks:    giftCardChecks,
		promoCacheLookups: promoLookups,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// QuoteComputed increments the quote counter and records floored lines.
func (m *Metrics) QuoteComputed(flooredLines int) {
	if m == nil {
		return
	}
	m.quotesTotal.Inc()
	if flooredLines > 0 {
		m.flooredLinesTotal.Add(float64(flooredLines))
	}
}

// GiftCardChecked records the outcome of a balance check.
func (m *Metrics) GiftCardChecked(state string) {
	if m == nil {
		return
	}
	m.giftCardChecks.WithLabelValues(state).Inc()
}

// PromotionSnapshotLookup records a cache hit or miss.
func (m *Metrics) PromotionSnapshotLookup(outcome string) {
	if m == nil {
		return
	}
	m.promoCacheLookups.WithLabelValues(outcome).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
