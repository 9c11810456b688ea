package peripheral

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mana-Robotics/televoodoo-viewer/dispatch"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/session"
	"github.com/Mana-Robotics/televoodoo-viewer/transform"
)

func newSimBackend(t *testing.T, rec *recorder, deps SimDeps) *SimBackend {
	t.Helper()
	d := dispatch.New(dispatch.Deps{
		Session:     session.Session{Name: "prsntrQA", Code: "TESTC0"},
		Transformer: transform.NewTransformer(transform.DefaultOutputConfig()),
		Sink:        rec,
	})
	deps.Dispatcher = d
	deps.Sink = rec
	return NewSimBackend(deps)
}

func TestSimInitialize_Validation(t *testing.T) {
	sim := NewSimBackend(SimDeps{})
	assert.Error(t, sim.Initialize())

	sim = newSimBackend(t, &recorder{}, SimDeps{Hz: 5000})
	assert.Error(t, sim.Initialize())

	sim = newSimBackend(t, &recorder{}, SimDeps{})
	assert.NoError(t, sim.Initialize())
	assert.Equal(t, DefaultSimHz, sim.hz)
}

func TestSim_FirstSampleStartsPose(t *testing.T) {
	rec := &recorder{}
	sim := newSimBackend(t, rec, SimDeps{Hz: 200, Seed: 11})

	require.NoError(t, sim.Initialize())
	require.NoError(t, sim.Start(context.Background()))
	defer func() { _ = sim.Stop(time.Second) }()

	require.Eventually(t, func() bool {
		return rec.count(event.TypePose) >= 2
	}, time.Second, 5*time.Millisecond)

	var poses []event.Event
	for _, e := range rec.snapshot() {
		if e.Type == event.TypePose {
			poses = append(poses, e)
		}
	}

	first, ok := poses[0].Data["absolute_input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, first["pose_start"])
	assert.Equal(t, 0.0, first["x"])
	assert.Equal(t, 1.0, first["qw"])

	second, ok := poses[1].Data["absolute_input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, second["pose_start"])
}

func TestSim_SubscribeEvents(t *testing.T) {
	rec := &recorder{}
	sim := newSimBackend(t, rec, SimDeps{Hz: 100, Seed: 3})

	require.NoError(t, sim.Initialize())
	require.NoError(t, sim.Start(context.Background()))
	assert.Equal(t, 2, rec.count(event.TypeSubscribe))

	require.NoError(t, sim.Stop(time.Second))
	assert.Equal(t, 2, rec.count(event.TypeUnsubscribe))
}

func TestSim_ContextCancelStops(t *testing.T) {
	rec := &recorder{}
	sim := newSimBackend(t, rec, SimDeps{Hz: 100, Seed: 5})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sim.Initialize())
	require.NoError(t, sim.Start(ctx))

	cancel()
	time.Sleep(30 * time.Millisecond)
	count := sim.Samples()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, sim.Samples())

	require.NoError(t, sim.Stop(time.Second))
}
