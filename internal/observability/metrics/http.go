package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	submissionsTotal       *prometheus.CounterVec
	newSignatures          *prometheus.HistogramVec
	composeDuration        *prometheus.HistogramVec
	authorityRequestsTotal *prometheus.CounterVec
	authorityDuration      *prometheus.HistogramVec
	documentsCreatedTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsign",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsign",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsign",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsign",
			Subsystem: "signing",
			Name:      "submissions_total",
			Help:      "Total signature submissions by outcome.",
		},
		[]string{"service", "outcome"},
	)
	newSignatures := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsign",
			Subsystem: "signing",
			Name:      "new_signatures",
			Help:      "Distribution of new signatures committed per submission.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"service"},
	)
	composeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsign",
			Subsystem: "signing",
			Name:      "compose_duration_seconds",
			Help:      "Attestation page composition duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	authorityRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsign",
			Subsystem: "authority",
			Name:      "requests_total",
			Help:      "Total requests to the signing authority by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	authorityDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsign",
			Subsystem: "authority",
			Name:      "request_duration_seconds",
			Help:      "Signing authority request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
	documentsCreatedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsign",
			Subsystem: "documents",
			Name:      "created_total",
			Help:      "Total documents registered for signing.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		submissionsTotal,
		newSignatures,
		composeDuration,
		authorityRequestsTotal,
		authorityDuration,
		documentsCreatedTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		submissionsTotal:       submissionsTotal,
		newSignatures:          newSignatures,
		composeDuration:        composeDuration,
		authorityRequestsTotal: authorityRequestsTotal,
		authorityDuration:      authorityDuration,
		documentsCreatedTotal:  documentsCreatedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/documents/") && strings.HasSuffix(path, "/cancel"):
		return "/api/v1/documents/{document_id}/cancel"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSubmission(service, outcome string, newSignatures int) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.submissionsTotal.WithLabelValues(service, outcome).Inc()
	if newSignatures >= 0 {
		m.newSignatures.WithLabelValues(service).Observe(float64(newSignatures))
	}
}

func (m *HTTPServerMetrics) RecordDocumentCreated(service string) {
	m.documentsCreatedTotal.WithLabelValues(service).Inc()
}

// SigningObserver adapts the metrics set to the composer and authority
// client observer interfaces.
type SigningObserver struct {
	service string
	metrics *HTTPServerMetrics
}

func (m *HTTPServerMetrics) SigningObserver(service string) *SigningObserver {
	return &SigningObserver{service: service, metrics: m}
}

func (o *SigningObserver) ObserveCompose(seconds float64) {
	o.metrics.composeDuration.WithLabelValues(o.service).Observe(seconds)
}

func (o *SigningObserver) ObserveAuthorityRequest(operation, status string, elapsed time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	o.metrics.authorityRequestsTotal.WithLabelValues(o.service, operation, status).Inc()
	o.metrics.authorityDuration.WithLabelValues(o.service, operation).Observe(elapsed.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
