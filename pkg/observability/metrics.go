// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for servers built on this SDK.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the Prometheus metrics provider.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string

	// Namespace is the Prometheus namespace, "mcp" by default.
	Namespace string

	// MetricsPath and MetricsPort configure the scrape endpoint started by
	// Serve. Defaults: /metrics on 9090.
	MetricsPath string
	MetricsPort int

	// HistogramBuckets for request latency, in milliseconds.
	HistogramBuckets []float64

	// Registry to register collectors on. Nil means a fresh private
	// registry, which keeps tests and multiple providers isolated.
	Registry *prometheus.Registry
}

// Metrics records protocol and feature metrics to Prometheus. It implements
// the transport MetricsRecorder interface so it can be wired into the
// observability middleware.
type Metrics struct {
	config   MetricsConfig
	registry *prometheus.Registry
	server   *http.Server

	requestDuration     *prometheus.HistogramVec
	requestTotal        *prometheus.CounterVec
	notificationTotal   *prometheus.CounterVec
	toolCallDuration    *prometheus.HistogramVec
	toolCallTotal       *prometheus.CounterVec
	resourceReadTotal   *prometheus.CounterVec
	promptRenderTotal   *prometheus.CounterVec
	activeSubscriptions prometheus.Gauge
	errorTotal          *prometheus.CounterVec
}

// NewMetrics creates a metrics provider and registers its collectors.
func NewMetrics(config MetricsConfig) (*Metrics, error) {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
	}

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	constLabels := prometheus.Labels{
		"service": config.ServiceName,
		"version": config.ServiceVersion,
	}

	m := &Metrics{
		config:   config,
		registry: registry,

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "request_duration_milliseconds",
			Help:        "Duration of protocol requests in milliseconds",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "status"}),

		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "request_total",
			Help:        "Total number of protocol requests",
			ConstLabels: constLabels,
		}, []string{"method", "status"}),

		notificationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "notification_total",
			Help:        "Total number of protocol notifications",
			ConstLabels: constLabels,
		}, []string{"method", "status"}),

		toolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool executions in milliseconds",
			Buckets:     config.HistogramBuckets,
			ConstLabels: constLabels,
		}, []string{"tool", "status"}),

		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "tool_call_total",
			Help:        "Total number of tool executions",
			ConstLabels: constLabels,
		}, []string{"tool", "status"}),

		resourceReadTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "resource_read_total",
			Help:        "Total number of resource reads",
			ConstLabels: constLabels,
		}, []string{"uri", "status"}),

		promptRenderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "prompt_render_total",
			Help:        "Total number of prompt renders",
			ConstLabels: constLabels,
		}, []string{"prompt", "status"}),

		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_subscriptions",
			Help:        "Number of active resource subscriptions",
			ConstLabels: constLabels,
		}),

		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "error_total",
			Help:        "Total number of errors by category",
			ConstLabels: constLabels,
		}, []string{"category"}),
	}

	collectors := []prometheus.Collector{
		m.requestDuration, m.requestTotal, m.notificationTotal,
		m.toolCallDuration, m.toolCallTotal, m.resourceReadTotal,
		m.promptRenderTotal, m.activeSubscriptions, m.errorTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRequest implements the transport MetricsRecorder interface.
func (m *Metrics) RecordRequest(method string, duration time.Duration, err error) {
	status := statusLabel(err)
	m.requestTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method, status).Observe(float64(duration.Milliseconds()))
}

// RecordNotification implements the transport MetricsRecorder interface.
func (m *Metrics) RecordNotification(method string, err error) {
	m.notificationTotal.WithLabelValues(method, statusLabel(err)).Inc()
}

// RecordToolCall records a tool execution.
func (m *Metrics) RecordToolCall(tool string, duration time.Duration, isError bool) {
	status := "success"
	if isError {
		status = "error"
	}
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
	m.toolCallDuration.WithLabelValues(tool, status).Observe(float64(duration.Milliseconds()))
}

// RecordResourceRead records a resource read.
func (m *Metrics) RecordResourceRead(uri string, err error) {
	m.resourceReadTotal.WithLabelValues(uri, statusLabel(err)).Inc()
}

// RecordPromptRender records a prompt render.
func (m *Metrics) RecordPromptRender(prompt string, err error) {
	m.promptRenderTotal.WithLabelValues(prompt, statusLabel(err)).Inc()
}

// SetActiveSubscriptions sets the subscription gauge.
func (m *Metrics) SetActiveSubscriptions(n int) {
	m.activeSubscriptions.Set(float64(n))
}

// RecordError counts an error by category.
func (m *Metrics) RecordError(category string) {
	m.errorTotal.WithLabelValues(category).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts the scrape endpoint on the configured port. It returns once
// the listener is running; Shutdown stops it.
func (m *Metrics) Serve() error {
	mux := http.NewServeMux()
	mux.Handle(m.config.MetricsPath, m.Handler())

	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.config.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Give the listener a moment to fail fast on bind errors.
	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server failed: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the scrape endpoint if Serve started one.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
