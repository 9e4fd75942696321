// Package smarthome implements a small multi-agent simulation: autonomous
// agents exchange typed messages over an in-process bus and coordinate a
// home's climate, energy and security subsystems.
package smarthome

import (
	"time"

	"github.com/google/uuid"
)

// MessageType classifies inter-agent messages.
type MessageType string

const (
	TypeStatusUpdate MessageType = "status_update"
	TypeRequest      MessageType = "request"
	TypeResponse     MessageType = "response"
	TypeAlert        MessageType = "alert"
	TypeCoordination MessageType = "coordination"
)

// Message is a single inter-agent message. Content is a free-form payload
// whose keys are conventions between the agents involved.
type Message struct {
	ID        string                 `json:"message_id"`
	Sender    string                 `json:"sender"`
	Recipient string                 `json:"recipient"`
	Type      MessageType            `json:"message_type"`
	Content   map[string]interface{} `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
}

func newMessage(sender, recipient string, t MessageType, content map[string]interface{}) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Type:      t,
		Content:   content,
		Timestamp: time.Now(),
	}
}
