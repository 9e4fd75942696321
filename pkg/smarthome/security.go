package smarthome

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/mcplabs/foundations/pkg/logging"
)

// motionProbability is the per-tick chance of simulated motion.
const motionProbability = 0.1

// SecurityAgent simulates a home security system: it arms and disarms on
// request and broadcasts alerts when motion is detected while armed.
type SecurityAgent struct {
	*BaseAgent

	mu           sync.Mutex
	armed        bool
	alertsRaised int
	lastMotion   time.Time

	// randFloat returns a value in [0, 1); stubbed in tests.
	randFloat func() float64
}

// NewSecurityAgent creates a disarmed security system.
func NewSecurityAgent(bus *Bus, logger logging.Logger) *SecurityAgent {
	return &SecurityAgent{
		BaseAgent: NewBaseAgent("security", "security_monitoring", bus, logger),
		randFloat: rand.Float64,
	}
}

// Tick simulates the motion sensors and raises alerts while armed.
func (s *SecurityAgent) Tick(ctx context.Context) error {
	s.mu.Lock()
	motion := s.randFloat() < motionProbability
	var alert map[string]interface{}
	if motion {
		s.lastMotion = time.Now()
		if s.armed {
			s.alertsRaised++
			alert = map[string]interface{}{
				"motion_detected": true,
				"location":        "living_room",
				"detected_at":     s.lastMotion,
			}
		}
	}

	status := map[string]interface{}{
		"armed":         s.armed,
		"alerts_raised": s.alertsRaised,
	}
	if !s.lastMotion.IsZero() {
		status["last_motion"] = s.lastMotion
	}
	s.mu.Unlock()

	s.setStatus(status)
	if alert != nil {
		s.logger.Warn("motion detected while armed")
		s.Broadcast(TypeAlert, alert)
	}
	return nil
}

// HandleMessage reacts to arm/disarm requests.
func (s *SecurityAgent) HandleMessage(ctx context.Context, msg Message) error {
	if msg.Type == TypeRequest {
		if armed, ok := boolContent(msg.Content, "armed"); ok {
			s.mu.Lock()
			s.armed = armed
			s.mu.Unlock()
			s.logger.Info("arming state changed", logging.Bool("armed", armed))
			return s.Send(msg.Sender, TypeResponse, map[string]interface{}{
				"armed": armed,
			})
		}
	}
	return s.BaseAgent.HandleMessage(ctx, msg)
}

// Armed reports whether the system is currently armed.
func (s *SecurityAgent) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}
