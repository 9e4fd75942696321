package smarthome

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"github.com/mcplabs/foundations/pkg/logging"
)

// Hysteresis band: heating or cooling starts beyond 1.0°F of error and
// stops once within 0.5°F of the target.
const (
	climateOnThreshold  = 1.0
	climateOffThreshold = 0.5
	efficiencySetback   = 2.0
)

// ThermostatAgent simulates a climate controller: ambient drift pulls the
// temperature around, the agent heats or cools toward its target and
// broadcasts state transitions.
type ThermostatAgent struct {
	*BaseAgent

	mu             sync.Mutex
	currentTemp    float64
	targetTemp     float64
	heating        bool
	cooling        bool
	efficiencyMode bool

	// randFloat returns a value in [0, 1); stubbed in tests.
	randFloat func() float64
}

// NewThermostatAgent creates a thermostat at 72°F with a 72°F target.
func NewThermostatAgent(bus *Bus, logger logging.Logger) *ThermostatAgent {
	return &ThermostatAgent{
		BaseAgent:   NewBaseAgent("thermostat", "climate_control", bus, logger),
		currentTemp: 72.0,
		targetTemp:  72.0,
		randFloat:   rand.Float64,
	}
}

// Tick advances the simulated temperature and applies the control loop.
func (t *ThermostatAgent) Tick(ctx context.Context) error {
	t.mu.Lock()

	switch {
	case t.heating:
		t.currentTemp += 0.1 + t.randFloat()*0.2
	case t.cooling:
		t.currentTemp -= 0.1 + t.randFloat()*0.2
	default:
		t.currentTemp += t.randFloat()*0.2 - 0.1
	}

	diff := t.targetTemp - t.currentTemp
	var transition map[string]interface{}

	switch {
	case diff > climateOnThreshold && !t.heating:
		t.heating = true
		t.cooling = false
		transition = map[string]interface{}{
			"heating_started": true,
			"current_temp":    t.currentTemp,
			"target_temp":     t.targetTemp,
		}
	case diff < -climateOnThreshold && !t.cooling:
		t.cooling = true
		t.heating = false
		transition = map[string]interface{}{
			"cooling_started": true,
			"current_temp":    t.currentTemp,
			"target_temp":     t.targetTemp,
		}
	case math.Abs(diff) < climateOffThreshold && (t.heating || t.cooling):
		t.heating = false
		t.cooling = false
		transition = map[string]interface{}{
			"climate_control_off": true,
			"current_temp":        t.currentTemp,
		}
	}

	status := map[string]interface{}{
		"current_temp":           math.Round(t.currentTemp*10) / 10,
		"target_temp":            t.targetTemp,
		"heating":                t.heating,
		"cooling":                t.cooling,
		"energy_efficiency_mode": t.efficiencyMode,
	}
	t.mu.Unlock()

	t.setStatus(status)
	if transition != nil {
		t.Broadcast(TypeStatusUpdate, transition)
	}
	return nil
}

// HandleMessage reacts to set_temperature requests and energy-saving
// coordination from the energy agent.
func (t *ThermostatAgent) HandleMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case TypeRequest:
		if temp, ok := floatContent(msg.Content, "set_temperature"); ok {
			t.mu.Lock()
			t.targetTemp = temp
			t.mu.Unlock()
			t.logger.Info("temperature set", logging.Float64("target", temp))
			return t.Send(msg.Sender, TypeResponse, map[string]interface{}{
				"temperature_set": true,
				"new_target":      temp,
			})
		}
		if enabled, ok := boolContent(msg.Content, "energy_efficiency_mode"); ok {
			t.setEfficiencyMode(enabled)
			return nil
		}
	case TypeCoordination:
		if saving, ok := boolContent(msg.Content, "energy_saving_request"); ok && saving {
			t.setEfficiencyMode(true)
			return nil
		}
	}
	return t.BaseAgent.HandleMessage(ctx, msg)
}

// setEfficiencyMode relaxes the target by the setback while actively
// heating or cooling.
func (t *ThermostatAgent) setEfficiencyMode(enabled bool) {
	t.mu.Lock()
	if enabled && !t.efficiencyMode {
		if t.heating {
			t.targetTemp -= efficiencySetback
		} else if t.cooling {
			t.targetTemp += efficiencySetback
		}
	}
	t.efficiencyMode = enabled
	t.mu.Unlock()

	t.logger.Info("energy efficiency mode changed", logging.Bool("enabled", enabled))
}
