package transport

import (
	"context"
	cryptorand "crypto/rand"
	"math"
	"math/big"
	"sync"
	"time"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// ReliabilityMiddleware adds retry with exponential backoff and circuit
// breaking to a transport.
type ReliabilityMiddleware struct {
	config         ReliabilityConfig
	circuitBreaker *circuitBreaker
	logger         logging.Logger
}

// NewReliabilityMiddleware creates reliability middleware from config.
func NewReliabilityMiddleware(config ReliabilityConfig, logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	rm := &ReliabilityMiddleware{
		config: config,
		logger: logger.WithFields(logging.String("component", "reliability")),
	}
	if config.CircuitBreaker.Enabled {
		rm.circuitBreaker = newCircuitBreaker(config.CircuitBreaker)
	}
	return rm
}

// Wrap implements Middleware.
func (rm *ReliabilityMiddleware) Wrap(transport Transport) Transport {
	return &reliabilityTransport{
		middlewareTransport: middlewareTransport{next: transport},
		middleware:          rm,
	}
}

type reliabilityTransport struct {
	middlewareTransport
	middleware *ReliabilityMiddleware
}

func (rt *reliabilityTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	config := rt.middleware.config
	cb := rt.middleware.circuitBreaker

	if cb != nil && !cb.canMakeCall() {
		return nil, mcperrors.NewError(
			mcperrors.CodeTransportError,
			"circuit breaker is open",
			mcperrors.CategoryTransport,
			mcperrors.SeverityError,
		).WithContext(&mcperrors.Context{Method: method, Component: "reliability"})
	}

	var lastErr error
	maxAttempts := config.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := rt.middlewareTransport.SendRequest(ctx, method, params)
		if err == nil {
			if cb != nil {
				cb.recordSuccess()
			}
			return resp, nil
		}

		lastErr = err
		if cb != nil {
			cb.recordFailure()
		}

		if !isRetryableError(err) || attempt == maxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		rt.middleware.logger.Debug("retrying request",
			logging.String("method", method),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastErr
}

// isRetryableError reports whether an error is worth retrying. Protocol
// errors reflect problems the peer already decided on; only transport
// failures are transient.
func isRetryableError(err error) bool {
	if mcpErr, ok := mcperrors.AsMCPError(err); ok {
		return mcpErr.Category() == mcperrors.CategoryTransport
	}
	// JSON-RPC errors from the peer are final.
	if _, ok := err.(*protocol.Error); ok {
		return false
	}
	return false
}

// calculateBackoff computes the delay before the next attempt, with jitter.
func calculateBackoff(attempt int, config ReliabilityConfig) time.Duration {
	factor := config.RetryBackoffFactor
	if factor <= 1 {
		factor = 2.0
	}
	base := config.InitialRetryDelay
	if base <= 0 {
		base = time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(factor, float64(attempt)))
	if config.MaxRetryDelay > 0 && delay > config.MaxRetryDelay {
		delay = config.MaxRetryDelay
	}

	// Add up to 25% jitter to avoid synchronized retries.
	if jitter, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(delay)/4+1)); err == nil {
		delay += time.Duration(jitter.Int64())
	}
	return delay
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

type circuitBreaker struct {
	mu           sync.Mutex
	config       CircuitBreakerConfig
	state        circuitState
	failures     int
	successes    int
	lastOpenedAt time.Time
}

func newCircuitBreaker(config CircuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{config: config}
}

func (cb *circuitBreaker) canMakeCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		if time.Since(cb.lastOpenedAt) >= cb.config.Timeout {
			cb.state = circuitHalfOpen
			cb.successes = 0
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = circuitClosed
			cb.failures = 0
		}
	case circuitClosed:
		cb.failures = 0
	}
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitHalfOpen:
		cb.state = circuitOpen
		cb.lastOpenedAt = time.Now()
	case circuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = circuitOpen
			cb.lastOpenedAt = time.Now()
		}
	}
}
