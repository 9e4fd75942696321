package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// MetricsRecorder receives transport-level metrics. The in-memory default
// keeps counters locally; the observability package provides a
// Prometheus-backed implementation.
type MetricsRecorder interface {
	RecordRequest(method string, duration time.Duration, err error)
	RecordNotification(method string, err error)
}

// ObservabilityMiddleware adds logging and metrics to a transport.
type ObservabilityMiddleware struct {
	config   ObservabilityConfig
	logger   logging.Logger
	recorder MetricsRecorder
}

// NewObservabilityMiddleware creates observability middleware with an
// in-memory metrics recorder.
func NewObservabilityMiddleware(config ObservabilityConfig, logger logging.Logger) Middleware {
	return NewObservabilityMiddlewareWithRecorder(config, logger, NewInMemoryMetrics())
}

// NewObservabilityMiddlewareWithRecorder creates observability middleware
// backed by a custom metrics recorder.
func NewObservabilityMiddlewareWithRecorder(config ObservabilityConfig, logger logging.Logger, recorder MetricsRecorder) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ObservabilityMiddleware{
		config:   config,
		logger:   logger.WithFields(logging.String("component", "transport")),
		recorder: recorder,
	}
}

// Wrap implements Middleware.
func (om *ObservabilityMiddleware) Wrap(transport Transport) Transport {
	return &observabilityTransport{
		middlewareTransport: middlewareTransport{next: transport},
		middleware:          om,
	}
}

type observabilityTransport struct {
	middlewareTransport
	middleware *ObservabilityMiddleware
}

func (ot *observabilityTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	start := time.Now()

	if ot.middleware.config.EnableLogging {
		ot.middleware.logger.Debug("sending request", logging.String("method", method))
	}

	resp, err := ot.middlewareTransport.SendRequest(ctx, method, params)
	duration := time.Since(start)

	if ot.middleware.config.EnableMetrics {
		ot.middleware.recorder.RecordRequest(method, duration, err)
	}
	if ot.middleware.config.EnableLogging {
		if err != nil {
			ot.middleware.logger.Warn("request failed",
				logging.String("method", method),
				logging.Duration("duration", duration),
				logging.ErrorField(err))
		} else {
			ot.middleware.logger.Debug("request succeeded",
				logging.String("method", method),
				logging.Duration("duration", duration))
		}
	}

	return resp, err
}

func (ot *observabilityTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	if ot.middleware.config.EnableLogging {
		ot.middleware.logger.Debug("sending notification", logging.String("method", method))
	}

	err := ot.middlewareTransport.SendNotification(ctx, method, params)

	if ot.middleware.config.EnableMetrics {
		ot.middleware.recorder.RecordNotification(method, err)
	}
	if err != nil && ot.middleware.config.EnableLogging {
		ot.middleware.logger.Warn("notification failed",
			logging.String("method", method),
			logging.ErrorField(err))
	}
	return err
}

// InMemoryMetrics is a MetricsRecorder backed by local counters. It is the
// default when no Prometheus registry is wired in.
type InMemoryMetrics struct {
	mu       sync.RWMutex
	requests map[string]*methodStats
	notifs   map[string]*methodStats
}

type methodStats struct {
	total    int64
	errors   int64
	totalDur int64 // nanoseconds
}

// NewInMemoryMetrics creates an empty in-memory recorder.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		requests: make(map[string]*methodStats),
		notifs:   make(map[string]*methodStats),
	}
}

func (m *InMemoryMetrics) stats(table map[string]*methodStats, method string) *methodStats {
	m.mu.RLock()
	s, ok := table[method]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = table[method]; ok {
		return s
	}
	s = &methodStats{}
	table[method] = s
	return s
}

// RecordRequest implements MetricsRecorder.
func (m *InMemoryMetrics) RecordRequest(method string, duration time.Duration, err error) {
	s := m.stats(m.requests, method)
	atomic.AddInt64(&s.total, 1)
	atomic.AddInt64(&s.totalDur, int64(duration))
	if err != nil {
		atomic.AddInt64(&s.errors, 1)
	}
}

// RecordNotification implements MetricsRecorder.
func (m *InMemoryMetrics) RecordNotification(method string, err error) {
	s := m.stats(m.notifs, method)
	atomic.AddInt64(&s.total, 1)
	if err != nil {
		atomic.AddInt64(&s.errors, 1)
	}
}

// RequestCount returns the total and error counts for a method.
func (m *InMemoryMetrics) RequestCount(method string) (total, errors int64) {
	s := m.stats(m.requests, method)
	return atomic.LoadInt64(&s.total), atomic.LoadInt64(&s.errors)
}

// NotificationCount returns the total and error counts for a method.
func (m *InMemoryMetrics) NotificationCount(method string) (total, errors int64) {
	s := m.stats(m.notifs, method)
	return atomic.LoadInt64(&s.total), atomic.LoadInt64(&s.errors)
}
