// Package pose defines the 6-DoF pose sample delivered by the
// controller and its relaxed wire decoding.
package pose

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/Mana-Robotics/televoodoo-viewer/errors"
)

// Pose is one sample of position plus orientation. The quaternion is
// canonical; the Euler fields are legacy and carried through untouched.
// Poses have no identity and are consumed transiently.
type Pose struct {
	PoseStart bool    `json:"pose_start"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	XRot      float64 `json:"x_rot"`
	YRot      float64 `json:"y_rot"`
	ZRot      float64 `json:"z_rot"`
	QX        float64 `json:"qx"`
	QY        float64 `json:"qy"`
	QZ        float64 `json:"qz"`
	QW        float64 `json:"qw"`
}

// Default returns the pose every absent field decodes to: all zeros
// with an identity quaternion.
func Default() Pose {
	return Pose{QW: 1.0}
}

// Decode parses raw characteristic bytes into a Pose. The payload is
// UTF-8 JSON; absent fields take their defaults (zeros, qw=1,
// pose_start=false) so partial payloads are tolerated. Any UTF-8 or
// JSON failure returns an invalid error and no pose.
func Decode(data []byte) (Pose, error) {
	if !utf8.Valid(data) {
		return Pose{}, errors.WrapInvalid(errors.ErrInvalidUTF8, "pose", "Decode", "utf-8 validation")
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Pose{}, errors.WrapInvalid(err, "pose", "Decode", "json parsing")
	}

	return FromMap(raw), nil
}

// FromMap reads a pose out of a decoded JSON mapping with the relaxed
// defaulting rules. Values of the wrong type count as absent.
func FromMap(raw map[string]any) Pose {
	p := Default()
	p.PoseStart = asBool(raw, "pose_start", false)
	p.X = asFloat(raw, "x", 0.0)
	p.Y = asFloat(raw, "y", 0.0)
	p.Z = asFloat(raw, "z", 0.0)
	p.XRot = asFloat(raw, "x_rot", 0.0)
	p.YRot = asFloat(raw, "y_rot", 0.0)
	p.ZRot = asFloat(raw, "z_rot", 0.0)
	p.QX = asFloat(raw, "qx", 0.0)
	p.QY = asFloat(raw, "qy", 0.0)
	p.QZ = asFloat(raw, "qz", 0.0)
	p.QW = asFloat(raw, "qw", 1.0)
	return p
}

func asFloat(raw map[string]any, key string, fallback float64) float64 {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

func asBool(raw map[string]any, key string, fallback bool) bool {
	v, ok := raw[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}
