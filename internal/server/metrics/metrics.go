// Package metrics holds the Prometheus collectors of the account server.
// All recording methods are safe on a nil *Metrics, which disables them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lifecycle events counted by the services.
const (
	EventRegistrationStarted   = "registration_started"
	EventRegistrationResent    = "registration_resent"
	EventRegistrationConfirmed = "registration_confirmed"
	EventPasswordSet           = "password_set"
	EventLoginSucceeded        = "login_succeeded"
	EventLoginFailed           = "login_failed"
	EventProfileCompleted      = "profile_completed"
	EventRecoveryStarted       = "recovery_started"
	EventRecoveryCompleted     = "recovery_completed"
	EventMemberCreated         = "member_created"
	EventAssignmentCreated     = "assignment_created"
)

type Metrics struct {
	registry *prometheus.Registry

	rpcInFlight   prometheus.Gauge
	rpcTotal      *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	rateLimited   *prometheus.CounterVec
	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	buildInfo     *prometheus.GaugeVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "grpc_in_flight_requests",
			Help: "In-flight gRPC requests.",
		}),
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests.",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "gRPC request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grpc_rate_limited_total",
			Help: "Requests rejected by the per-peer rate limiter.",
		}, []string{"method"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "account_lifecycle_events_total",
			Help: "Account lifecycle transitions.",
		}, []string{"event"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Lifecycle emails handed to the notifier.",
		}, []string{"result"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Account server build information.",
		}, []string{"version", "commit"}),
	}

	m.registry.MustRegister(
		m.rpcInFlight, m.rpcTotal, m.rpcDuration, m.rateLimited,
		m.events, m.notifications, m.buildInfo,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SetBuildInfo(version, commit string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(version, commit).Set(1)
}

// RPCStarted increments the in-flight gauge and returns a func that records
// the outcome.
func (m *Metrics) RPCStarted(method string) func(code string) {
	if m == nil {
		return func(string) {}
	}
	m.rpcInFlight.Inc()
	start := time.Now()
	return func(code string) {
		m.rpcInFlight.Dec()
		m.rpcTotal.WithLabelValues(method, code).Inc()
		m.rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RateLimited(method string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(method).Inc()
}

func (m *Metrics) Event(event string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}
