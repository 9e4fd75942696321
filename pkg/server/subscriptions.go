package server

import (
	"context"
	"sync"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
)

// ResourceNotifier delivers resource-updated notifications to the peer.
// Server implements it.
type ResourceNotifier interface {
	NotifyResourceUpdated(uri string) error
}

// changeQueueSize bounds pending change events. When the queue is full
// further changes for that moment are dropped rather than blocking the
// caller; the next change for the same URI will notify again.
const changeQueueSize = 64

// SubscriptionManager tracks which resource URIs the client subscribed to
// and delivers updated notifications for them. Change events are queued
// and sent from a worker goroutine so callers never block on transport
// writes.
type SubscriptionManager struct {
	notifier ResourceNotifier
	logger   logging.Logger

	mu   sync.RWMutex
	uris map[string]struct{}

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewSubscriptionManager creates a subscription manager that delivers
// notifications through the given notifier.
func NewSubscriptionManager(notifier ResourceNotifier, logger logging.Logger) *SubscriptionManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SubscriptionManager{
		notifier: notifier,
		logger:   logger.WithFields(logging.String("component", "subscriptions")),
		uris:     make(map[string]struct{}),
		changes:  make(chan string, changeQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery worker. Calling Start twice is a no-op.
func (m *SubscriptionManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.deliver(ctx)
}

// Stop shuts down the delivery worker and waits for it to drain.
func (m *SubscriptionManager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

// Subscribe registers interest in a URI. Subscribing twice is a no-op.
func (m *SubscriptionManager) Subscribe(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uris[uri] = struct{}{}
}

// Unsubscribe removes interest in a URI. It fails when the URI was never
// subscribed so clients notice bookkeeping bugs.
func (m *SubscriptionManager) Unsubscribe(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uris[uri]; !ok {
		return mcperrors.InvalidParameter("uri", uri, "a URI with an active subscription")
	}
	delete(m.uris, uri)
	return nil
}

// IsSubscribed reports whether a URI has an active subscription.
func (m *SubscriptionManager) IsSubscribed(uri string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.uris[uri]
	return ok
}

// Subscriptions returns the currently subscribed URIs.
func (m *SubscriptionManager) Subscriptions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	uris := make([]string, 0, len(m.uris))
	for uri := range m.uris {
		uris = append(uris, uri)
	}
	return uris
}

// NotifyChange queues an updated notification for a URI. Changes to URIs
// without a subscription are dropped here, before queueing.
func (m *SubscriptionManager) NotifyChange(uri string) {
	if !m.IsSubscribed(uri) {
		return
	}
	select {
	case m.changes <- uri:
	default:
		m.logger.Warn("change queue full, dropping notification",
			logging.String("uri", uri))
	}
}

func (m *SubscriptionManager) deliver(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case uri := <-m.changes:
			// Subscription may have been removed while queued.
			if !m.IsSubscribed(uri) {
				continue
			}
			if err := m.notifier.NotifyResourceUpdated(uri); err != nil {
				m.logger.Warn("failed to deliver resource update",
					logging.String("uri", uri),
					logging.ErrorField(err))
			}
		case <-m.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
