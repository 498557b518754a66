package obs

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	sagaSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_saga_steps_total",
			Help: "Catalog orchestration steps by flow, step and outcome.",
		},
		[]string{"flow", "step", "outcome"},
	)

	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_compensations_total",
			Help: "Compensating actions executed after a failed orchestration step.",
		},
		[]string{"flow", "action", "outcome"},
	)

	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_rejections_total",
			Help: "Bearer tokens rejected during authentication, by reason.",
		},
		[]string{"reason"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_build_info",
			Help: "Always 1, labelled with the running binary's service name and build.",
		},
		[]string{"service", "version", "commit", "go_version"},
	)
)

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			sagaSteps, compensations, authRejections, buildInfo)
	})
}

// SetBuildInfo publishes the build of the named service. A later call replaces
// the earlier labels.
func SetBuildInfo(service, version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(service, version, commit, runtime.Version()).Set(1)
}

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SagaStep records the outcome of one orchestration step.
func SagaStep(flow, step string, err error) {
	sagaSteps.WithLabelValues(flow, step, outcome(err)).Inc()
}

// Compensation records a compensating action.
func Compensation(flow, action string, err error) {
	compensations.WithLabelValues(flow, action, outcome(err)).Inc()
}

// AuthRejected counts a rejected bearer token.
func AuthRejected(reason string) {
	authRejections.WithLabelValues(reason).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Instrument measures request count, latency and in-flight requests, labelled by chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := RoutePattern(r)
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// RoutePattern returns the matched chi route, or "unmatched" to keep label cardinality bounded.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
