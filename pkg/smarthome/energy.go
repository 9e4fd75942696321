package smarthome

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/mcplabs/foundations/pkg/logging"
)

// Draw figures in kW.
const (
	baseDraw     = 5.0
	heatingDraw  = 15.0
	coolingDraw  = 12.0
	securityDraw = 1.5

	// Peak tariff window, inclusive of both hours.
	peakStartHour = 16
	peakEndHour   = 20

	// Above this draw during peak hours the agent requests energy saving.
	peakDrawLimit = 20.0
)

// StatusSource exposes another agent's status snapshot. The energy agent
// reads its peers' snapshots instead of exchanging messages for every tick.
type StatusSource interface {
	Name() string
	Status() map[string]interface{}
}

// EnergyAgent tracks the home's power draw, accumulates consumption and
// asks the other agents to save energy when peak-hour draw runs high.
type EnergyAgent struct {
	*BaseAgent

	sources []StatusSource

	mu               sync.Mutex
	totalConsumption float64 // kWh
	energySavingMode bool
	applianceUsage   map[string]float64

	// now is stubbed in tests to pin the peak-hours window.
	now func() time.Time
}

// NewEnergyAgent creates an energy manager that derives draw from the
// given peers' status snapshots.
func NewEnergyAgent(bus *Bus, logger logging.Logger, sources ...StatusSource) *EnergyAgent {
	return &EnergyAgent{
		BaseAgent:      NewBaseAgent("energy", "energy_management", bus, logger),
		sources:        sources,
		applianceUsage: make(map[string]float64),
		now:            time.Now,
	}
}

// Tick recomputes the current draw and accumulated consumption.
func (e *EnergyAgent) Tick(ctx context.Context) error {
	hour := e.now().Hour()
	peak := hour >= peakStartHour && hour <= peakEndHour

	consumption := baseDraw
	hvac, security := 0.0, 0.0
	for _, src := range e.sources {
		status := src.Status()
		if heating, _ := boolContent(status, "heating"); heating {
			hvac += heatingDraw
		} else if cooling, _ := boolContent(status, "cooling"); cooling {
			hvac += coolingDraw
		}
		if armed, _ := boolContent(status, "armed"); armed {
			security += securityDraw
		}
	}
	consumption += hvac + security

	e.mu.Lock()
	e.totalConsumption += consumption / 60 // per-minute tick
	e.applianceUsage["hvac"] = hvac
	e.applianceUsage["security"] = security

	requestSaving := peak && consumption > peakDrawLimit && !e.energySavingMode
	if requestSaving {
		e.energySavingMode = true
	}

	usage := make(map[string]float64, len(e.applianceUsage))
	for k, v := range e.applianceUsage {
		usage[k] = v
	}
	status := map[string]interface{}{
		"total_consumption":   math.Round(e.totalConsumption*100) / 100,
		"current_consumption": math.Round(consumption*100) / 100,
		"peak_hours":          peak,
		"energy_saving_mode":  e.energySavingMode,
		"appliance_usage":     usage,
	}
	e.mu.Unlock()

	e.setStatus(status)

	if requestSaving {
		e.logger.Warn("peak-hour draw too high, requesting energy saving",
			logging.Float64("consumption_kw", consumption))
		e.Broadcast(TypeCoordination, map[string]interface{}{
			"energy_saving_request": true,
			"reason":                "peak_hours_high_consumption",
			"current_consumption":   consumption,
		})
	}
	return nil
}

// TotalConsumption returns the accumulated consumption in kWh.
func (e *EnergyAgent) TotalConsumption() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalConsumption
}
