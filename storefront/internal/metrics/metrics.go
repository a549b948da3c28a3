package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	CheckoutOutcomes *prometheus.CounterVec
	CheckoutStepMS   *prometheus.HistogramVec
	Resumptions      *prometheus.CounterVec
	SideEffectErrors *prometheus.CounterVec
}

// New registers the storefront collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		CheckoutOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "outcomes_total",
			Help:      "Checkout runs by final state and failure kind.",
		}, []string{"status", "kind"}),
		CheckoutStepMS: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "step_duration_ms",
			Help:      "Duration of network-facing checkout steps in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"step"}),
		Resumptions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "resumptions_total",
			Help:      "Gateway returns by route and whether a pending order was found.",
		}, []string{"route", "marker"}),
		SideEffectErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_errors_total",
			Help:      "Failures of best-effort side effects (cache, journal, events).",
		}, []string{"effect"}),
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStep and the other recording helpers are no-ops on a nil *Metrics.
func (m *Metrics) ObserveStep(step string, since time.Time) {
	if m == nil {
		return
	}
	m.CheckoutStepMS.WithLabelValues(step).Observe(float64(time.Since(since).Milliseconds()))
}

func (m *Metrics) CheckoutOutcome(status, kind string) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(status, kind).Inc()
}

func (m *Metrics) Resumption(route string, markerFound bool) {
	if m == nil {
		return
	}
	m.Resumptions.WithLabelValues(route, strconv.FormatBool(markerFound)).Inc()
}

func (m *Metrics) SideEffectError(effect string) {
	if m == nil {
		return
	}
	m.SideEffectErrors.WithLabelValues(effect).Inc()
}

// Middleware records count and latency per chi route pattern, so ids in the
// path do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}
