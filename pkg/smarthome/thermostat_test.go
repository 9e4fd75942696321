package smarthome

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newThermostatHarness wires a thermostat and an observer inbox on a
// shared bus, with drift pinned to zero while idle.
func newThermostatHarness(t *testing.T) (*ThermostatAgent, <-chan Message) {
	t.Helper()

	bus := NewBus(nil)
	agent := NewThermostatAgent(bus, nil)
	agent.randFloat = func() float64 { return 0.5 }

	_, err := bus.Register(agent.Name())
	require.NoError(t, err)
	observer, err := bus.Register("observer")
	require.NoError(t, err)
	return agent, observer
}

func TestThermostatSetTemperature(t *testing.T) {
	agent, observer := newThermostatHarness(t)
	ctx := context.Background()

	err := agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"set_temperature": 68.0},
	})
	require.NoError(t, err)

	resp := <-observer
	assert.Equal(t, TypeResponse, resp.Type)
	assert.Equal(t, true, resp.Content["temperature_set"])
	assert.Equal(t, 68.0, resp.Content["new_target"])
}

func TestThermostatHeatingCycle(t *testing.T) {
	agent, observer := newThermostatHarness(t)
	ctx := context.Background()

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"set_temperature": 73.5},
	}))
	<-observer // response

	// First tick: 1.5°F below target, heating starts.
	require.NoError(t, agent.Tick(ctx))
	started := <-observer
	assert.Equal(t, TypeStatusUpdate, started.Type)
	assert.Equal(t, true, started.Content["heating_started"])

	status := agent.Status()
	assert.Equal(t, true, status["heating"])
	assert.Equal(t, false, status["cooling"])

	// Heating raises 0.2°F per tick; within ten ticks the temperature is
	// inside the off band and the controller shuts down.
	var off Message
	for i := 0; i < 10; i++ {
		require.NoError(t, agent.Tick(ctx))
		select {
		case off = <-observer:
		default:
		}
	}
	assert.Equal(t, true, off.Content["climate_control_off"])

	status = agent.Status()
	assert.Equal(t, false, status["heating"])
	assert.InDelta(t, 73.2, status["current_temp"], 0.11)
}

func TestThermostatCoolingStarts(t *testing.T) {
	agent, observer := newThermostatHarness(t)
	ctx := context.Background()

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"set_temperature": 65.0},
	}))
	<-observer

	require.NoError(t, agent.Tick(ctx))
	started := <-observer
	assert.Equal(t, true, started.Content["cooling_started"])
	assert.Equal(t, true, agent.Status()["cooling"])
}

func TestThermostatEfficiencyModeRelaxesTarget(t *testing.T) {
	agent, observer := newThermostatHarness(t)
	ctx := context.Background()

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "observer",
		Type:    TypeRequest,
		Content: map[string]interface{}{"set_temperature": 76.0},
	}))
	<-observer
	require.NoError(t, agent.Tick(ctx)) // heating starts
	<-observer

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Sender:  "energy",
		Type:    TypeCoordination,
		Content: map[string]interface{}{"energy_saving_request": true},
	}))

	require.NoError(t, agent.Tick(ctx))
	status := agent.Status()
	assert.Equal(t, true, status["energy_efficiency_mode"])
	assert.Equal(t, 74.0, status["target_temp"])
}

func TestThermostatEfficiencyModeIsIdempotent(t *testing.T) {
	agent, _ := newThermostatHarness(t)
	ctx := context.Background()

	require.NoError(t, agent.HandleMessage(ctx, Message{
		Type:    TypeCoordination,
		Content: map[string]interface{}{"energy_saving_request": true},
	}))
	require.NoError(t, agent.HandleMessage(ctx, Message{
		Type:    TypeCoordination,
		Content: map[string]interface{}{"energy_saving_request": true},
	}))

	require.NoError(t, agent.Tick(ctx))
	// Not heating or cooling when enabled, so the target is untouched.
	assert.Equal(t, 72.0, agent.Status()["target_temp"])
}
