package smarthome

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusSendAndReceive(t *testing.T) {
	bus := NewBus(nil)

	inbox, err := bus.Register("thermostat")
	require.NoError(t, err)
	_, err = bus.Register("energy")
	require.NoError(t, err)

	require.NoError(t, bus.Send("energy", "thermostat", TypeRequest,
		map[string]interface{}{"set_temperature": 68.0}))

	msg := <-inbox
	assert.Equal(t, "energy", msg.Sender)
	assert.Equal(t, "thermostat", msg.Recipient)
	assert.Equal(t, TypeRequest, msg.Type)
	assert.Equal(t, 68.0, msg.Content["set_temperature"])
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestBusUnknownRecipient(t *testing.T) {
	bus := NewBus(nil)
	err := bus.Send("a", "ghost", TypeAlert, nil)
	assert.ErrorContains(t, err, `unknown recipient "ghost"`)
}

func TestBusDuplicateRegistration(t *testing.T) {
	bus := NewBus(nil)
	_, err := bus.Register("thermostat")
	require.NoError(t, err)
	_, err = bus.Register("thermostat")
	assert.ErrorContains(t, err, "already registered")
}

func TestBusBroadcastExcludesSender(t *testing.T) {
	bus := NewBus(nil)

	sender, err := bus.Register("energy")
	require.NoError(t, err)
	a, err := bus.Register("thermostat")
	require.NoError(t, err)
	b, err := bus.Register("security")
	require.NoError(t, err)

	bus.Broadcast("energy", TypeCoordination, map[string]interface{}{"energy_saving_request": true})

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.Empty(t, sender)
	assert.Equal(t, []string{"energy", "security", "thermostat"}, bus.Agents())
}

func TestBusFullInboxDropsMessage(t *testing.T) {
	bus := NewBus(nil)
	inbox, err := bus.Register("slow")
	require.NoError(t, err)
	_, err = bus.Register("fast")
	require.NoError(t, err)

	for i := 0; i < inboxSize+5; i++ {
		require.NoError(t, bus.Send("fast", "slow", TypeStatusUpdate, nil))
	}
	assert.Len(t, inbox, inboxSize)
}
