package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
	"github.com/mcplabs/foundations/pkg/protocol"
)

func TestGenerateID(t *testing.T) {
	bt := NewBaseTransport(nil)
	assert.Equal(t, "req_1", bt.GenerateID())
	assert.Equal(t, "req_2", bt.GenerateID())
}

func TestHandleRequest(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterRequestHandler("echo", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var in map[string]string
		require.NoError(t, json.Unmarshal(params, &in))
		return in, nil
	})

	req, err := protocol.NewRequest("req_1", "echo", map[string]string{"k": "v"})
	require.NoError(t, err)

	resp := bt.HandleRequest(context.Background(), req)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `{"k":"v"}`, string(resp.Result))
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	bt := NewBaseTransport(nil)

	req, err := protocol.NewRequest("req_1", "nope", nil)
	require.NoError(t, err)

	resp := bt.HandleRequest(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.MethodNotFound, resp.Error.Code)
}

func TestHandleRequestMCPErrorCode(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterRequestHandler("read", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, mcperrors.ResourceNotFoundByURI("tasks://missing")
	})

	req, err := protocol.NewRequest("req_1", "read", nil)
	require.NoError(t, err)

	resp := bt.HandleRequest(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.ErrorCode(mcperrors.CodeResourceNotFound), resp.Error.Code)
}

func TestHandleRequestPanicRecovery(t *testing.T) {
	bt := NewBaseTransport(nil)
	bt.RegisterRequestHandler("boom", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		panic("handler exploded")
	})

	req, err := protocol.NewRequest("req_1", "boom", nil)
	require.NoError(t, err)

	resp := bt.HandleRequest(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.InternalError, resp.Error.Code)
}

func TestHandleNotification(t *testing.T) {
	bt := NewBaseTransport(nil)

	var got string
	bt.RegisterNotificationHandler("ping", func(ctx context.Context, params json.RawMessage) error {
		var in map[string]string
		if err := json.Unmarshal(params, &in); err != nil {
			return err
		}
		got = in["msg"]
		return nil
	})

	notif, err := protocol.NewNotification("ping", map[string]string{"msg": "hi"})
	require.NoError(t, err)
	require.NoError(t, bt.HandleNotification(context.Background(), notif))
	assert.Equal(t, "hi", got)

	// Unregistered notifications are dropped silently.
	other, err := protocol.NewNotification("unknown", nil)
	require.NoError(t, err)
	assert.NoError(t, bt.HandleNotification(context.Background(), other))
}

func TestWaitForResponse(t *testing.T) {
	bt := NewBaseTransport(nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		resp, _ := protocol.NewResponse("req_9", json.RawMessage(`"ok"`))
		bt.HandleResponse(resp)
	}()

	resp, err := bt.WaitForResponse(context.Background(), "req_9")
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(resp.Result))
}

func TestWaitForResponseContextCancel(t *testing.T) {
	bt := NewBaseTransport(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := bt.WaitForResponse(ctx, "req_never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatchMessageClassification(t *testing.T) {
	bt := NewBaseTransport(nil)

	sent := make(chan []byte, 1)
	send := func(data []byte) error {
		sent <- data
		return nil
	}

	bt.RegisterRequestHandler("sum", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return 3, nil
	})

	// Request produces a response via send; requests are handled on their
	// own goroutine.
	err := bt.DispatchMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":"r1","method":"sum","params":{}}`), send)
	require.NoError(t, err)

	var resp protocol.Response
	select {
	case data := <-sent:
		require.NoError(t, json.Unmarshal(data, &resp))
	case <-time.After(time.Second):
		t.Fatal("response never sent")
	}
	assert.JSONEq(t, `3`, string(resp.Result))

	// Malformed JSON is a parse error.
	err = bt.DispatchMessage(context.Background(), []byte(`{broken`), send)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeParseError))

	// A message with neither id nor method is invalid.
	err = bt.DispatchMessage(context.Background(), []byte(`{"jsonrpc":"2.0"}`), send)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
}

func TestNewTransportFactory(t *testing.T) {
	config := DefaultTransportConfig(TransportTypeStdio)
	tr, err := New(config)
	require.NoError(t, err)
	assert.NotNil(t, tr)

	_, err = New(TransportConfig{Type: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnsupportedTransportType)

	_, err = New(TransportConfig{Type: TransportTypeInproc})
	assert.Error(t, err)
}
