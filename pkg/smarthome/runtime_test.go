package smarthome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeRunsAgentsAndCollectsStatuses(t *testing.T) {
	bus := NewBus(nil)
	runtime := NewRuntime(bus, 10*time.Millisecond, nil)

	thermostat := NewThermostatAgent(bus, nil)
	thermostat.randFloat = func() float64 { return 0.5 }
	security := NewSecurityAgent(bus, nil)
	security.randFloat = func() float64 { return 0.99 }
	energy := NewEnergyAgent(bus, nil, thermostat, security)

	require.NoError(t, runtime.Add(thermostat))
	require.NoError(t, runtime.Add(security))
	require.NoError(t, runtime.Add(energy))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	final, err := runtime.Run(ctx)
	require.NoError(t, err)
	require.Len(t, final, 3)

	assert.Contains(t, final["thermostat"], "current_temp")
	assert.Contains(t, final["security"], "armed")
	assert.Contains(t, final["energy"], "total_consumption")
	assert.Greater(t, energy.TotalConsumption(), 0.0)
}

func TestRuntimeDeliversMessagesBetweenAgents(t *testing.T) {
	bus := NewBus(nil)
	runtime := NewRuntime(bus, 10*time.Millisecond, nil)

	thermostat := NewThermostatAgent(bus, nil)
	thermostat.randFloat = func() float64 { return 0.5 }
	require.NoError(t, runtime.Add(thermostat))

	observer, err := bus.Register("observer")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, runErr := runtime.Run(ctx)
		assert.NoError(t, runErr)
	}()

	require.NoError(t, bus.Send("observer", "thermostat", TypeRequest,
		map[string]interface{}{"set_temperature": 78.0}))

	select {
	case resp := <-observer:
		assert.Equal(t, TypeResponse, resp.Type)
		assert.Equal(t, 78.0, resp.Content["new_target"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for thermostat response")
	}

	cancel()
	<-done
}

func TestRuntimeRejectsDuplicateAgents(t *testing.T) {
	bus := NewBus(nil)
	runtime := NewRuntime(bus, 0, nil)

	require.NoError(t, runtime.Add(NewSecurityAgent(bus, nil)))
	err := runtime.Add(NewSecurityAgent(bus, nil))
	assert.ErrorContains(t, err, "already registered")
}
