package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/logging"
	"github.com/mcplabs/foundations/pkg/protocol"
)

// InprocTransport is an in-process transport connected to a peer by message
// channels. Pairs are used to wire a client and server together inside one
// binary, typically in demos and tests.
type InprocTransport struct {
	*BaseTransport
	incoming chan []byte
	peer     *InprocTransport
	done     chan struct{}
	stopOnce sync.Once
}

// NewInprocPair creates two connected in-process transports. Messages sent
// on one side are received by the other.
func NewInprocPair(logger logging.Logger) (*InprocTransport, *InprocTransport) {
	clientLogger := logger
	serverLogger := logger
	if logger != nil {
		clientLogger = logger.WithFields(logging.String("component", "inproc-client"))
		serverLogger = logger.WithFields(logging.String("component", "inproc-server"))
	}

	a := &InprocTransport{
		BaseTransport: NewBaseTransport(clientLogger),
		incoming:      make(chan []byte, 64),
		done:          make(chan struct{}),
	}
	b := &InprocTransport{
		BaseTransport: NewBaseTransport(serverLogger),
		incoming:      make(chan []byte, 64),
		done:          make(chan struct{}),
	}
	a.peer = b
	b.peer = a
	return a, b
}

// Initialize is a no-op for in-process transports.
func (t *InprocTransport) Initialize(ctx context.Context) error {
	return nil
}

// Start processes incoming messages until the context is cancelled or the
// transport is stopped.
func (t *InprocTransport) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.done:
			return nil
		case data, ok := <-t.incoming:
			if !ok {
				return nil
			}
			t.processMessage(ctx, data)
		}
	}
}

// Stop halts the transport and cleans up pending requests.
func (t *InprocTransport) Stop(ctx context.Context) error {
	t.stopOnce.Do(func() {
		close(t.done)
		t.BaseTransport.Cleanup()
	})
	return nil
}

// Send delivers a raw message to the peer.
func (t *InprocTransport) Send(data []byte) error {
	select {
	case <-t.peer.done:
		return mcperrors.ConnectionLost("inproc", nil)
	case t.peer.incoming <- data:
		return nil
	}
}

// SendRequest sends a request to the peer and waits for its response.
func (t *InprocTransport) SendRequest(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	id := t.GenerateID()

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling request: %w", err)
	}

	if err := t.Send(data); err != nil {
		return nil, err
	}

	resp, err := t.WaitForResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error waiting for response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp, nil
}

// SendNotification sends a one-way notification to the peer.
func (t *InprocTransport) SendNotification(ctx context.Context, method string, params interface{}) error {
	notification, err := protocol.NewNotification(method, params)
	if err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("error marshalling notification: %w", err)
	}
	return t.Send(data)
}

func (t *InprocTransport) processMessage(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.Logger().Error("panic processing message",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
		}
	}()

	if err := t.DispatchMessage(ctx, data, t.Send); err != nil {
		t.Logger().Warn("transport error", logging.ErrorField(err))
	}
}
