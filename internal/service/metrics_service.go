package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation: HTTP request
// metrics plus registration-domain counters.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	phaseTransitions     *prometheus.CounterVec
	sectionRegistrations *prometheus.CounterVec
	paymentCallbacks     *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a dedicated registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	phaseTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_phase_transitions_total",
		Help: "Phase transitions by target phase",
	}, []string{"phase"})

	sectionRegistrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "section_registrations_total",
		Help: "Section registration attempts by outcome",
	}, []string{"outcome"})

	paymentCallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_callbacks_total",
		Help: "Payment gateway callbacks by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, phaseTransitions, sectionRegistrations, paymentCallbacks, goroutines)

	return &MetricsService{
		registry:             registry,
		handler:              promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		phaseTransitions:     phaseTransitions,
		sectionRegistrations: sectionRegistrations,
		paymentCallbacks:     paymentCallbacks,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one finished HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// IncPhaseTransition counts one phase transition.
func (m *MetricsService) IncPhaseTransition(tag string) {
	if m == nil {
		return
	}
	m.phaseTransitions.WithLabelValues(tag).Inc()
}

// IncSectionRegistration counts one registration attempt outcome.
func (m *MetricsService) IncSectionRegistration(outcome string) {
	if m == nil {
		return
	}
	m.sectionRegistrations.WithLabelValues(outcome).Inc()
}

// IncPaymentCallback counts one callback outcome.
func (m *MetricsService) IncPaymentCallback(outcome string) {
	if m == nil {
		return
	}
	m.paymentCallbacks.WithLabelValues(outcome).Inc()
}
