package smarthome

import (
	"context"
	"sync"

	"github.com/mcplabs/foundations/pkg/logging"
)

// Agent is an autonomous participant in the simulation. HandleMessage
// processes one inbound message; Tick advances the agent's own state and is
// called on every simulation interval.
type Agent interface {
	Name() string
	Kind() string
	HandleMessage(ctx context.Context, msg Message) error
	Tick(ctx context.Context) error
	Status() map[string]interface{}
}

// BaseAgent carries the bookkeeping shared by all agents: identity, bus
// access and a guarded status snapshot.
type BaseAgent struct {
	name   string
	kind   string
	bus    *Bus
	logger logging.Logger

	mu     sync.RWMutex
	status map[string]interface{}
}

// NewBaseAgent creates the shared agent core. The agent is not registered
// on the bus until the runtime adds it.
func NewBaseAgent(name, kind string, bus *Bus, logger logging.Logger) *BaseAgent {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BaseAgent{
		name:   name,
		kind:   kind,
		bus:    bus,
		logger: logger.WithFields(logging.String("agent", name)),
		status: make(map[string]interface{}),
	}
}

func (a *BaseAgent) Name() string { return a.name }
func (a *BaseAgent) Kind() string { return a.kind }

// Status returns a copy of the agent's latest status snapshot.
func (a *BaseAgent) Status() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := make(map[string]interface{}, len(a.status))
	for k, v := range a.status {
		status[k] = v
	}
	return status
}

func (a *BaseAgent) setStatus(status map[string]interface{}) {
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()
}

// Send delivers a message to one named agent.
func (a *BaseAgent) Send(recipient string, t MessageType, content map[string]interface{}) error {
	return a.bus.Send(a.name, recipient, t, content)
}

// Broadcast delivers a message to every other agent.
func (a *BaseAgent) Broadcast(t MessageType, content map[string]interface{}) {
	a.bus.Broadcast(a.name, t, content)
}

// HandleMessage logs and ignores the message. Concrete agents override it
// for the message types they care about.
func (a *BaseAgent) HandleMessage(ctx context.Context, msg Message) error {
	a.logger.Debug("message received",
		logging.String("from", msg.Sender),
		logging.String("type", string(msg.Type)))
	return nil
}

// floatContent extracts a float64 value from message content, tolerating
// the int values that show up after JSON round-trips.
func floatContent(content map[string]interface{}, key string) (float64, bool) {
	switch v := content[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func boolContent(content map[string]interface{}, key string) (bool, bool) {
	v, ok := content[key].(bool)
	return v, ok
}
