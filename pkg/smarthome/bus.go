package smarthome

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mcplabs/foundations/pkg/logging"
)

// inboxSize bounds each agent's pending messages. A full inbox drops the
// message rather than blocking the sender's loop.
const inboxSize = 32

// Bus routes messages between registered agents. Each agent owns a buffered
// inbox channel; sends never block.
type Bus struct {
	mu      sync.RWMutex
	inboxes map[string]chan Message
	logger  logging.Logger
}

// NewBus creates an empty message bus.
func NewBus(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		inboxes: make(map[string]chan Message),
		logger:  logger.WithFields(logging.String("component", "bus")),
	}
}

// Register creates an inbox for the named agent and returns its receive
// side. Registering the same name twice is an error.
func (b *Bus) Register(name string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.inboxes[name]; exists {
		return nil, fmt.Errorf("agent %q already registered", name)
	}
	inbox := make(chan Message, inboxSize)
	b.inboxes[name] = inbox
	return inbox, nil
}

// Agents returns the registered agent names, sorted.
func (b *Bus) Agents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.inboxes))
	for name := range b.inboxes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers a message to one agent. Unknown recipients are an error;
// a full inbox drops the message with a warning.
func (b *Bus) Send(sender, recipient string, t MessageType, content map[string]interface{}) error {
	b.mu.RLock()
	inbox, ok := b.inboxes[recipient]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown recipient %q", recipient)
	}

	msg := newMessage(sender, recipient, t, content)
	select {
	case inbox <- msg:
		b.logger.Debug("message delivered",
			logging.String("from", sender),
			logging.String("to", recipient),
			logging.String("type", string(t)))
	default:
		b.logger.Warn("inbox full, dropping message",
			logging.String("to", recipient),
			logging.String("type", string(t)))
	}
	return nil
}

// Broadcast sends a message to every registered agent except the sender.
func (b *Bus) Broadcast(sender string, t MessageType, content map[string]interface{}) {
	for _, name := range b.Agents() {
		if name == sender {
			continue
		}
		// Recipients are taken from the registry, so Send cannot fail.
		_ = b.Send(sender, name, t, content)
	}
}
