// Package transform converts raw pose samples into output events
// expressed in a configurable coordinate frame: absolute or
// origin-relative, scaled, axis-remapped, in quaternion and Euler
// representations.
package transform

import (
	"math"
	"sync"

	"github.com/Mana-Robotics/televoodoo-viewer/pose"
)

// Output block keys
const (
	KeyAbsoluteInput       = "absolute_input"
	KeyDeltaInput          = "delta_input"
	KeyAbsoluteTransformed = "absolute_transformed"
	KeyDeltaTransformed    = "delta_transformed"
)

// Transformer converts poses to output events under one immutable
// OutputConfig. Its only state is the origin latch: the first sample
// with pose_start set becomes the origin, once, irreversibly. Safe for
// concurrent use.
type Transformer struct {
	config    OutputConfig
	frameQuat Quaternion // qT, built once from the target frame
	frameInv  Quaternion // qT conjugate
	framePos  [3]float64

	mu     sync.Mutex
	origin *pose.Pose
}

// NewTransformer creates a transformer for cfg. The target-frame
// rotation is composed here once; absent frame means identity rotation
// and zero translation.
func NewTransformer(cfg OutputConfig) *Transformer {
	t := &Transformer{
		config:    cfg,
		frameQuat: Identity(),
	}
	if f := cfg.TargetFrame; f != nil {
		t.frameQuat = FromEulerXYZ(f.XRot, f.YRot, f.ZRot)
		t.framePos = [3]float64{f.X, f.Y, f.Z}
	}
	t.frameInv = t.frameQuat.Conjugate()
	return t
}

// Config returns the transformer's immutable configuration
func (t *Transformer) Config() OutputConfig {
	return t.config
}

// Origin returns the captured origin pose, if any
func (t *Transformer) Origin() (pose.Pose, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.origin == nil {
		return pose.Pose{}, false
	}
	return *t.origin, true
}

// captureOrigin latches p as origin if none is set and p starts a pose
// stream. Check-then-set is atomic: when two pose writes race before
// the first origin exists, exactly one wins.
func (t *Transformer) captureOrigin(p pose.Pose) (pose.Pose, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.origin == nil && p.PoseStart {
		captured := p
		t.origin = &captured
	}
	if t.origin == nil {
		return pose.Pose{}, false
	}
	return *t.origin, true
}

// Transform converts one pose into an output event. Block presence
// follows IncludeFormats; delta blocks are omitted entirely (not null)
// until an origin exists.
func (t *Transformer) Transform(p pose.Pose) map[string]any {
	origin, hasOrigin := t.captureOrigin(p)

	cfg := t.config
	wantEuler := cfg.IncludeOrientation.EulerRadian || cfg.IncludeOrientation.EulerDegree

	result := make(map[string]any, 4)

	if cfg.IncludeFormats.AbsoluteInput {
		absoluteInput := map[string]any{
			"pose_start": p.PoseStart,
			"x":          p.X,
			"y":          p.Y,
			"z":          p.Z,
			"qx":         p.QX,
			"qy":         p.QY,
			"qz":         p.QZ,
			"qw":         p.QW,
		}
		if wantEuler {
			absoluteInput["x_rot"] = p.XRot
			absoluteInput["y_rot"] = p.YRot
			absoluteInput["z_rot"] = p.ZRot
		}
		result[KeyAbsoluteInput] = absoluteInput
	}

	if cfg.IncludeFormats.DeltaInput && hasOrigin {
		result[KeyDeltaInput] = map[string]any{
			"dx": p.X - origin.X,
			"dy": p.Y - origin.Y,
			"dz": p.Z - origin.Z,
		}
	}

	needTransformed := cfg.IncludeFormats.AbsoluteTransformed ||
		(cfg.IncludeFormats.DeltaTransformed && hasOrigin)
	if !needTransformed {
		return result
	}

	// Frame-relative orientation is shared by both transformed blocks;
	// it is never differenced against the origin orientation.
	qRel := t.frameInv.Mul(Quaternion{X: p.QX, Y: p.QY, Z: p.QZ, W: p.QW})

	if cfg.IncludeFormats.AbsoluteTransformed {
		px, py, pz := t.frameInv.Rotate(p.X-t.framePos[0], p.Y-t.framePos[1], p.Z-t.framePos[2])
		block := map[string]any{
			"x": cfg.Scale * cfg.OutputAxes.X * px,
			"y": cfg.Scale * cfg.OutputAxes.Y * py,
			"z": cfg.Scale * cfg.OutputAxes.Z * pz,
		}
		t.addOrientation(block, qRel)
		result[KeyAbsoluteTransformed] = block
	}

	if cfg.IncludeFormats.DeltaTransformed && hasOrigin {
		dx, dy, dz := t.frameInv.Rotate(p.X-origin.X, p.Y-origin.Y, p.Z-origin.Z)
		block := map[string]any{
			"dx": cfg.Scale * cfg.OutputAxes.X * dx,
			"dy": cfg.Scale * cfg.OutputAxes.Y * dy,
			"dz": cfg.Scale * cfg.OutputAxes.Z * dz,
		}
		t.addOrientation(block, qRel)
		result[KeyDeltaTransformed] = block
	}

	return result
}

// addOrientation writes the frame-relative orientation into an output
// block: quaternion always, Euler fields per config.
func (t *Transformer) addOrientation(block map[string]any, q Quaternion) {
	block["qx"] = q.X
	block["qy"] = q.Y
	block["qz"] = q.Z
	block["qw"] = q.W

	if !t.config.IncludeOrientation.EulerRadian && !t.config.IncludeOrientation.EulerDegree {
		return
	}

	ex, ey, ez := q.ToEulerXYZ()
	if t.config.IncludeOrientation.EulerRadian {
		block["x_rot"] = ex
		block["y_rot"] = ey
		block["z_rot"] = ez
	}
	if t.config.IncludeOrientation.EulerDegree {
		block["x_rot_deg"] = ex * 180 / math.Pi
		block["y_rot_deg"] = ey * 180 / math.Pi
		block["z_rot_deg"] = ez * 180 / math.Pi
	}
}
