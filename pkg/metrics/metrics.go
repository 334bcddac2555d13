// Package metrics provides Prometheus instrumentation for the bench
// services. Path labels are sanitized so order and run ids never become
// label values.
package metrics

import (
	"net/http"
	"regexp"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
	registryMu   sync.Mutex
)

// GetRegistry returns the shared metrics registry.
func GetRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
	return registry
}

// ResetRegistry resets the registry. Only for tests.
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registryOnce = sync.Once{}
}

// ServiceMetrics contains the per-service instrument set.
type ServiceMetrics struct {
	ServiceName string

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  prometheus.Gauge

	ServiceInfo *prometheus.GaugeVec

	AuthAttempts *prometheus.CounterVec
	ErrorsTotal  *prometheus.CounterVec
}

// NewServiceMetrics creates and registers the instrument set for a service.
// The active security profile is exposed as an info label so dashboards can
// split series per profile.
func NewServiceMetrics(serviceName, version, profile string) *ServiceMetrics {
	reg := GetRegistry()

	m := &ServiceMetrics{
		ServiceName: serviceName,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		ActiveRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "http_active_requests",
				Help:      "Number of active HTTP requests",
			},
		),

		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "info",
				Help:      "Service information",
			},
			[]string{"version", "go_version", "profile"},
		),

		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "auth_attempts_total",
				Help:      "Total authentication attempts",
			},
			[]string{"method", "result"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bench",
				Subsystem: serviceName,
				Name:      "errors_total",
				Help:      "Total number of errors",
			},
			[]string{"type"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ActiveRequests,
		m.ServiceInfo,
		m.AuthAttempts,
		m.ErrorsTotal,
	)

	m.ServiceInfo.WithLabelValues(version, runtime.Version(), profile).Set(1)

	return m
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

var (
	uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	jwtPattern  = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+`)
)

// SanitizePath collapses resource ids so metric label cardinality stays
// bounded. Order and run ids are UUIDs; anything token-shaped is masked
// outright.
func SanitizePath(path string) string {
	path = uuidPattern.ReplaceAllString(path, "{id}")
	return jwtPattern.ReplaceAllString(path, "{token}")
}
