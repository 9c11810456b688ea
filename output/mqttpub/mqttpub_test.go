package mqttpub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mana-Robotics/televoodoo-viewer/event"
)

func TestNew_Defaults(t *testing.T) {
	p := New(Deps{BrokerURL: "tcp://localhost:1883"})
	assert.Equal(t, DefaultTopicPrefix, p.prefix)
	assert.EqualValues(t, 0, p.qos)
}

func TestEmit_DisconnectedDrops(t *testing.T) {
	p := New(Deps{BrokerURL: "tcp://localhost:1883"})

	// No broker: events are dropped, never block the stream
	p.Emit(event.Heartbeat())
	p.Emit(event.AuthOK())

	assert.Equal(t, int64(0), p.Published())
	assert.Equal(t, int64(2), p.Dropped())
}

func TestClose_WithoutConnect(t *testing.T) {
	p := New(Deps{BrokerURL: "tcp://localhost:1883"})
	// Safe to close a never-connected publisher
	p.Close()
}
