package smarthome

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSecurityHarness(t *testing.T) (*SecurityAgent, <-chan Message) {
	t.Helper()

	bus := NewBus(nil)
	agent := NewSecurityAgent(bus, nil)

	_, err := bus.Register(agent.Name())
	require.NoError(t, err)
	observer, err := bus.Register("observer")
	require.NoError(t, err)
	return agent, observer
}

func TestSecurityArmDisarm(t *testing.T) {
	agent, observer := newSecurityHarness(t)
	ctx := context.Background()

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"armed": true},
	}))
	assert.True(t, agent.Armed())

	resp := <-observer
	assert.Equal(t, TypeResponse, resp.Type)
	assert.Equal(t, true, resp.Content["armed"])

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"armed": false},
	}))
	assert.False(t, agent.Armed())
}

func TestSecurityMotionAlertWhileArmed(t *testing.T) {
	agent, observer := newSecurityHarness(t)
	ctx := context.Background()
	agent.randFloat = func() float64 { return 0.0 } // always motion

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"armed": true},
	}))
	<-observer

	require.NoError(t, agent.Tick(ctx))

	alert := <-observer
	assert.Equal(t, TypeAlert, alert.Type)
	assert.Equal(t, true, alert.Content["motion_detected"])
	assert.Equal(t, "living_room", alert.Content["location"])
	assert.Equal(t, 1, agent.Status()["alerts_raised"])
}

func TestSecurityNoAlertWhileDisarmed(t *testing.T) {
	agent, observer := newSecurityHarness(t)
	agent.randFloat = func() float64 { return 0.0 }

	require.NoError(t, agent.Tick(context.Background()))
	assert.Empty(t, observer)
	assert.Equal(t, 0, agent.Status()["alerts_raised"])
	assert.Contains(t, agent.Status(), "last_motion")
}

func TestSecurityNoMotion(t *testing.T) {
	agent, observer := newSecurityHarness(t)
	agent.randFloat = func() float64 { return 0.99 }

	require.NoError(t, agent.Tick(context.Background()))
	assert.Empty(t, observer)
	assert.NotContains(t, agent.Status(), "last_motion")
}
