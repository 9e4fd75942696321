package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcplabs/foundations/pkg/errors"
)

func startPair(t *testing.T) (client, server *InprocTransport, ctx context.Context) {
	t.Helper()

	client, server = NewInprocPair(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = client.Stop(context.Background())
		_ = server.Stop(context.Background())
	})

	go func() { _ = client.Start(ctx) }()
	go func() { _ = server.Start(ctx) }()
	return client, server, ctx
}

func TestInprocRequestRoundTrip(t *testing.T) {
	client, server, ctx := startPair(t)

	server.RegisterRequestHandler("greet", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(params, &in); err != nil {
			return nil, err
		}
		return map[string]string{"greeting": "Hello, " + in.Name + "!"}, nil
	})

	resp, err := client.SendRequest(ctx, "greet", map[string]string{"name": "Ada"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting":"Hello, Ada!"}`, string(resp.Result))
}

func TestInprocErrorPropagation(t *testing.T) {
	client, server, ctx := startPair(t)

	server.RegisterRequestHandler("fail", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return nil, mcperrors.ResourceNotFoundByURI("hello://missing")
	})

	_, err := client.SendRequest(ctx, "fail", nil)
	require.Error(t, err)

	var protoErr interface{ Error() string }
	require.ErrorAs(t, err, &protoErr)
	assert.Contains(t, err.Error(), "hello://missing")
}

func TestInprocNotification(t *testing.T) {
	client, server, ctx := startPair(t)

	got := make(chan string, 1)
	server.RegisterNotificationHandler("event", func(ctx context.Context, params json.RawMessage) error {
		var in struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(params, &in); err != nil {
			return err
		}
		got <- in.Kind
		return nil
	})

	require.NoError(t, client.SendNotification(ctx, "event", map[string]string{"kind": "update"}))

	select {
	case kind := <-got:
		assert.Equal(t, "update", kind)
	case <-time.After(time.Second):
		t.Fatal("notification never arrived")
	}
}

func TestInprocSendAfterPeerStopped(t *testing.T) {
	client, server := NewInprocPair(nil)
	require.NoError(t, server.Stop(context.Background()))

	err := client.Send([]byte(`{}`))
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeConnectionLost))
}

func TestInprocBidirectional(t *testing.T) {
	client, server, ctx := startPair(t)

	// The server side can also issue requests to the client.
	client.RegisterRequestHandler("status", func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return map[string]string{"state": "ready"}, nil
	})

	resp, err := server.SendRequest(ctx, "status", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"ready"}`, string(resp.Result))
}
