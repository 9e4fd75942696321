package transport

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// mockTransport records calls and returns scripted results.
type mockTransport struct {
	mu        sync.Mutex
	calls     int
	failTimes int
	failWith  error
	response  *protocol.Response
}

func newMockTransport() *mockTransport {
	resp, _ := protocol.NewResponse("req_1", json.RawMessage(`"ok"`))
	return &mockTransport{
		response: resp,
	}
}

func (m *mockTransport) Initialize(ctx context.Context) error { return nil }
func (m *mockTransport) Start(ctx context.Context) error      { return nil }
func (m *mockTransport) Stop(ctx context.Context) error       { return nil }
func (m *mockTransport) GenerateID() string                   { return "req_1" }
func (m *mockTransport) Cleanup()                             {}

func (m *mockTransport) RegisterRequestHandler(method string, handler RequestHandler)           {}
func (m *mockTransport) RegisterNotificationHandler(method string, handler NotificationHandler) {}

func (m *mockTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failTimes {
		return nil, m.failWith
	}
	return m.response, nil
}

func (m *mockTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failTimes {
		return m.failWith
	}
	return nil
}

func (m *mockTransport) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func fastReliabilityConfig(retries int) ReliabilityConfig {
	return ReliabilityConfig{
		MaxRetries:         retries,
		InitialRetryDelay:  time.Millisecond,
		MaxRetryDelay:      5 * time.Millisecond,
		RetryBackoffFactor: 2.0,
	}
}

func TestReliabilityRetriesTransportErrors(t *testing.T) {
	mock := newMockTransport()
	mock.failTimes = 2
	mock.failWith = mcperrors.StdioTransportError("write", assert.AnError)

	tr := NewReliabilityMiddleware(fastReliabilityConfig(3), nil).Wrap(mock)

	resp, err := tr.SendRequest(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(resp.Result))
	assert.Equal(t, 3, mock.callCount())
}

func TestReliabilityDoesNotRetryProtocolErrors(t *testing.T) {
	mock := newMockTransport()
	mock.failTimes = 10
	mock.failWith = &protocol.Error{Code: protocol.InvalidParams, Message: "bad params"}

	tr := NewReliabilityMiddleware(fastReliabilityConfig(3), nil).Wrap(mock)

	_, err := tr.SendRequest(context.Background(), "tools/call", nil)
	require.Error(t, err)
	assert.Equal(t, 1, mock.callCount())
}

func TestReliabilityGivesUpAfterMaxRetries(t *testing.T) {
	mock := newMockTransport()
	mock.failTimes = 10
	mock.failWith = mcperrors.StdioTransportError("write", assert.AnError)

	tr := NewReliabilityMiddleware(fastReliabilityConfig(2), nil).Wrap(mock)

	_, err := tr.SendRequest(context.Background(), "ping", nil)
	require.Error(t, err)
	assert.Equal(t, 3, mock.callCount())
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := newCircuitBreaker(CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	assert.True(t, cb.canMakeCall())
	cb.recordFailure()
	cb.recordFailure()
	assert.False(t, cb.canMakeCall())

	// After the timeout the breaker half-opens and a success closes it.
	time.Sleep(15 * time.Millisecond)
	assert.True(t, cb.canMakeCall())
	cb.recordSuccess()
	assert.True(t, cb.canMakeCall())
}

func TestObservabilityRecordsMetrics(t *testing.T) {
	mock := newMockTransport()
	metrics := NewInMemoryMetrics()

	config := ObservabilityConfig{EnableMetrics: true}
	tr := NewObservabilityMiddlewareWithRecorder(config, nil, metrics).Wrap(mock)

	_, err := tr.SendRequest(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	require.NoError(t, tr.SendNotification(context.Background(), "notifications/initialized", nil))

	total, errors := metrics.RequestCount("tools/list")
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(0), errors)

	total, _ = metrics.NotificationCount("notifications/initialized")
	assert.Equal(t, int64(1), total)
}

func TestChainMiddlewareOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return MiddlewareFunc(func(next Transport) Transport {
			return &orderedTransport{middlewareTransport{next: next}, name, &order}
		})
	}

	mock := newMockTransport()
	tr := ChainMiddleware(mk("outer"), mk("inner")).Wrap(mock)

	_, err := tr.SendRequest(context.Background(), "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type orderedTransport struct {
	middlewareTransport
	name  string
	order *[]string
}

func (o *orderedTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	*o.order = append(*o.order, o.name)
	return o.middlewareTransport.SendRequest(ctx, method, params)
}
