package transform

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mana-Robotics/televoodoo-viewer/pose"
)

func allFormats() OutputConfig {
	cfg := DefaultOutputConfig()
	cfg.IncludeFormats = IncludeFormats{
		AbsoluteInput:       true,
		DeltaInput:          true,
		AbsoluteTransformed: true,
		DeltaTransformed:    true,
	}
	return cfg
}

func block(t *testing.T, out map[string]any, key string) map[string]any {
	t.Helper()
	b, ok := out[key].(map[string]any)
	require.True(t, ok, "missing block %s", key)
	return b
}

func TestTransform_NoDeltaBeforeOrigin(t *testing.T) {
	tr := NewTransformer(allFormats())

	for i := 0; i < 5; i++ {
		out := tr.Transform(pose.Pose{X: float64(i), QW: 1})
		assert.NotContains(t, out, KeyDeltaInput)
		assert.NotContains(t, out, KeyDeltaTransformed)
		assert.Contains(t, out, KeyAbsoluteInput)
		assert.Contains(t, out, KeyAbsoluteTransformed)
	}

	_, hasOrigin := tr.Origin()
	assert.False(t, hasOrigin)
}

func TestTransform_OriginLatchesOnce(t *testing.T) {
	tr := NewTransformer(allFormats())

	tr.Transform(pose.Pose{PoseStart: true, X: 1.25, QW: 1})
	origin, ok := tr.Origin()
	require.True(t, ok)
	assert.Equal(t, 1.25, origin.X)

	// A later pose_start sample must not move the origin
	tr.Transform(pose.Pose{PoseStart: true, X: 99, QW: 1})
	origin, _ = tr.Origin()
	assert.Equal(t, 1.25, origin.X)
}

func TestTransform_DeltaInputBitwiseExact(t *testing.T) {
	tr := NewTransformer(allFormats())
	originX := 0.30000000000000004 // deliberately awkward double
	tr.Transform(pose.Pose{PoseStart: true, X: originX, QW: 1})

	// Interleave non-start samples, then check exactness
	for i := 0; i < 3; i++ {
		tr.Transform(pose.Pose{X: float64(i), QW: 1})
	}

	px := 1.1
	out := tr.Transform(pose.Pose{X: px, QW: 1})
	delta := block(t, out, KeyDeltaInput)
	assert.Equal(t, px-originX, delta["dx"])
	assert.Equal(t, 0.0, delta["dy"])
	assert.Equal(t, 0.0, delta["dz"])
}

func TestTransform_IdentityFramePassthrough(t *testing.T) {
	cfg := allFormats()
	cfg.Scale = 3.0
	cfg.OutputAxes = Axes{X: 1, Y: 2, Z: 1}
	tr := NewTransformer(cfg)

	p := pose.Pose{X: 1.5, Y: -0.5, Z: 2.0, QX: 0.1, QY: 0.2, QZ: 0.3, QW: 0.9}
	out := tr.Transform(p)
	abs := block(t, out, KeyAbsoluteTransformed)

	assert.Equal(t, cfg.Scale*cfg.OutputAxes.X*p.X, abs["x"])
	assert.Equal(t, cfg.Scale*cfg.OutputAxes.Y*p.Y, abs["y"])
	assert.Equal(t, cfg.Scale*cfg.OutputAxes.Z*p.Z, abs["z"])

	// With no target frame, q_rel is the input quaternion, untouched
	assert.Equal(t, p.QX, abs["qx"])
	assert.Equal(t, p.QY, abs["qy"])
	assert.Equal(t, p.QZ, abs["qz"])
	assert.Equal(t, p.QW, abs["qw"])
}

func TestTransform_FrameRoundTrip(t *testing.T) {
	frame := &Frame{X: 0.5, Y: -1.0, Z: 2.0, XRot: 0.4, YRot: -0.3, ZRot: 1.1}
	cfg := allFormats()
	cfg.TargetFrame = frame
	tr := NewTransformer(cfg)

	p := pose.Pose{X: 3.7, Y: -2.2, Z: 0.9, QW: 1}
	out := tr.Transform(p)
	abs := block(t, out, KeyAbsoluteTransformed)

	// Undo: rotate back by qT, translate back by the frame position
	qT := FromEulerXYZ(frame.XRot, frame.YRot, frame.ZRot)
	rx, ry, rz := qT.Rotate(abs["x"].(float64), abs["y"].(float64), abs["z"].(float64))

	assert.InDelta(t, p.X, rx+frame.X, 1e-9*math.Abs(p.X))
	assert.InDelta(t, p.Y, ry+frame.Y, 1e-9*math.Abs(p.Y))
	assert.InDelta(t, p.Z, rz+frame.Z, 1e-9*math.Abs(p.Z))
}

func TestTransform_ScaleAndAxisFlip(t *testing.T) {
	cfg := OutputConfig{
		IncludeFormats: IncludeFormats{
			AbsoluteInput:       true,
			DeltaInput:          true,
			AbsoluteTransformed: true,
			DeltaTransformed:    false,
		},
		IncludeOrientation: IncludeOrientation{Quaternion: true},
		Scale:              2.0,
		OutputAxes:         Axes{X: 1, Y: 1, Z: -1},
	}
	tr := NewTransformer(cfg)

	tr.Transform(pose.Pose{PoseStart: true, X: 1, QW: 1})
	out := tr.Transform(pose.Pose{X: 3, QW: 1})

	abs := block(t, out, KeyAbsoluteTransformed)
	assert.InDelta(t, 6.0, abs["x"].(float64), 0)
	assert.InDelta(t, 0.0, abs["y"].(float64), 0)
	assert.InDelta(t, 0.0, abs["z"].(float64), 0)
	assert.InDelta(t, 0.0, abs["qx"].(float64), 0)
	assert.InDelta(t, 0.0, abs["qy"].(float64), 0)
	assert.InDelta(t, 0.0, abs["qz"].(float64), 0)
	assert.InDelta(t, 1.0, abs["qw"].(float64), 0)

	delta := block(t, out, KeyDeltaInput)
	assert.Equal(t, 2.0, delta["dx"])
	assert.Equal(t, 0.0, delta["dy"])
	assert.Equal(t, 0.0, delta["dz"])

	assert.NotContains(t, out, KeyDeltaTransformed)
}

func TestTransform_DeltaTransformedOrientationIsFrameRelative(t *testing.T) {
	frame := &Frame{XRot: 0.2, YRot: 0.1, ZRot: -0.4}
	cfg := allFormats()
	cfg.TargetFrame = frame
	tr := NewTransformer(cfg)

	tr.Transform(pose.Pose{PoseStart: true, QX: 0.5, QY: 0.5, QZ: 0.5, QW: 0.5})
	p := pose.Pose{X: 1, QX: 0.1, QY: 0.2, QZ: 0.3, QW: 0.9}
	out := tr.Transform(p)

	abs := block(t, out, KeyAbsoluteTransformed)
	delta := block(t, out, KeyDeltaTransformed)

	// Transformed orientation is frame-relative, never differenced
	// against the origin orientation: both blocks carry the same q_rel
	assert.Equal(t, abs["qx"], delta["qx"])
	assert.Equal(t, abs["qy"], delta["qy"])
	assert.Equal(t, abs["qz"], delta["qz"])
	assert.Equal(t, abs["qw"], delta["qw"])
}

func TestTransform_EulerDegreeFields(t *testing.T) {
	cfg := allFormats()
	cfg.IncludeOrientation = IncludeOrientation{Quaternion: true, EulerRadian: true, EulerDegree: true}
	tr := NewTransformer(cfg)

	q := FromEulerXYZ(0, 0, math.Pi/2)
	out := tr.Transform(pose.Pose{QX: q.X, QY: q.Y, QZ: q.Z, QW: q.W, XRot: 0.25})
	abs := block(t, out, KeyAbsoluteTransformed)

	assert.InDelta(t, math.Pi/2, abs["z_rot"].(float64), 1e-9)
	assert.InDelta(t, 90.0, abs["z_rot_deg"].(float64), 1e-9)

	// Input euler fields are carried through verbatim when requested
	in := block(t, out, KeyAbsoluteInput)
	assert.Equal(t, 0.25, in["x_rot"])
}

func TestTransform_InputEulerOmittedByDefault(t *testing.T) {
	tr := NewTransformer(DefaultOutputConfig())
	out := tr.Transform(pose.Pose{XRot: 1.0, QW: 1})
	in := block(t, out, KeyAbsoluteInput)
	assert.NotContains(t, in, "x_rot")
}

func TestTransform_FormatFlagsGateBlocks(t *testing.T) {
	cfg := DefaultOutputConfig()
	cfg.IncludeFormats = IncludeFormats{} // nothing enabled
	tr := NewTransformer(cfg)

	out := tr.Transform(pose.Pose{PoseStart: true, X: 1, QW: 1})
	assert.Empty(t, out)
}

func TestTransform_ConcurrentOriginRace(t *testing.T) {
	tr := NewTransformer(allFormats())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Transform(pose.Pose{PoseStart: true, X: float64(i), QW: 1})
		}(i)
	}
	wg.Wait()

	origin, ok := tr.Origin()
	require.True(t, ok)

	// Exactly one writer won; every later delta is relative to it
	out := tr.Transform(pose.Pose{X: origin.X + 1, QW: 1})
	delta := block(t, out, KeyDeltaInput)
	assert.Equal(t, 1.0, delta["dx"])
}
