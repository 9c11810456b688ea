package natspub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/natsclient"
)

func newDisconnectedPublisher(t *testing.T) *Publisher {
	t.Helper()
	client, err := natsclient.NewClient("nats://localhost:4222")
	require.NoError(t, err)
	return New(Deps{Client: client})
}

func TestNew_Defaults(t *testing.T) {
	p := newDisconnectedPublisher(t)
	assert.Equal(t, DefaultSubjectPrefix, p.prefix)
}

func TestEmit_DisconnectedDrops(t *testing.T) {
	p := newDisconnectedPublisher(t)

	// A dead broker must never stall or panic the stream
	p.Emit(event.Heartbeat())
	p.Emit(event.Session("prsntrAB", "X9K2LQ"))

	assert.Equal(t, int64(0), p.Published())
	assert.Equal(t, int64(2), p.Dropped())
}

func TestEnvelope_Encoding(t *testing.T) {
	envelope := Envelope{
		ID:        "11111111-2222-3333-4444-555555555555",
		Timestamp: 1700000000000,
		Event:     event.Control("recenter"),
	}

	data, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", decoded["id"])

	inner, ok := decoded["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ble_control", inner["type"])
	assert.Equal(t, "recenter", inner["cmd"])
	assert.NotContains(t, inner, "name")
	assert.NotContains(t, inner, "data")
}
