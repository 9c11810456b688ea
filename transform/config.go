package transform

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mana-Robotics/televoodoo-viewer/errors"
)

// IncludeFormats selects which output blocks appear in a transformed
// event. Delta blocks additionally require an origin to exist.
type IncludeFormats struct {
	AbsoluteInput       bool `json:"absolute_input"       yaml:"absolute_input"`
	DeltaInput          bool `json:"delta_input"          yaml:"delta_input"`
	AbsoluteTransformed bool `json:"absolute_transformed" yaml:"absolute_transformed"`
	DeltaTransformed    bool `json:"delta_transformed"    yaml:"delta_transformed"`
}

// IncludeOrientation selects the orientation representations carried in
// the output blocks. Radian and degree Euler may be present together.
type IncludeOrientation struct {
	Quaternion  bool `json:"quaternion"   yaml:"quaternion"`
	EulerRadian bool `json:"euler_radian" yaml:"euler_radian"`
	EulerDegree bool `json:"euler_degree" yaml:"euler_degree"`
}

// Axes are independent per-axis position multipliers applied before
// scaling. Default 1.0 each.
type Axes struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Frame is a configured pose defining the coordinate system that
// transformed outputs are expressed in. Rotations are radians.
type Frame struct {
	X    float64 `json:"x"     yaml:"x"`
	Y    float64 `json:"y"     yaml:"y"`
	Z    float64 `json:"z"     yaml:"z"`
	XRot float64 `json:"x_rot" yaml:"x_rot"`
	YRot float64 `json:"y_rot" yaml:"y_rot"`
	ZRot float64 `json:"z_rot" yaml:"z_rot"`
}

// OutputConfig controls how incoming poses are re-expressed. Immutable
// for the lifetime of a Transformer.
type OutputConfig struct {
	IncludeFormats     IncludeFormats     `json:"includeFormats"        yaml:"includeFormats"`
	IncludeOrientation IncludeOrientation `json:"includeOrientation"    yaml:"includeOrientation"`
	Scale              float64            `json:"scale"                 yaml:"scale"`
	OutputAxes         Axes               `json:"outputAxes"            yaml:"outputAxes"`
	TargetFrame        *Frame             `json:"targetFrame,omitempty" yaml:"targetFrame,omitempty"`
}

// DefaultOutputConfig returns the configuration used when no document
// is supplied: raw absolute input plus the transformed absolute pose,
// quaternion orientation only, unit scale, identity axes, no target
// frame.
func DefaultOutputConfig() OutputConfig {
	return OutputConfig{
		IncludeFormats: IncludeFormats{
			AbsoluteInput:       true,
			AbsoluteTransformed: true,
		},
		IncludeOrientation: IncludeOrientation{
			Quaternion: true,
		},
		Scale:      1.0,
		OutputAxes: Axes{X: 1.0, Y: 1.0, Z: 1.0},
	}
}

// outputConfigDoc mirrors OutputConfig with optional fields so absent
// values can fall back to defaults while explicit false/zero survive.
type outputConfigDoc struct {
	IncludeFormats     *IncludeFormats     `json:"includeFormats"     yaml:"includeFormats"`
	IncludeOrientation *IncludeOrientation `json:"includeOrientation" yaml:"includeOrientation"`
	Scale              *float64            `json:"scale"              yaml:"scale"`
	OutputAxes         *axesDoc            `json:"outputAxes"         yaml:"outputAxes"`
	TargetFrame        *Frame              `json:"targetFrame"        yaml:"targetFrame"`
	TargetFrameDegrees *Frame              `json:"targetFrameDegrees" yaml:"targetFrameDegrees"`
}

type axesDoc struct {
	X *float64 `json:"x" yaml:"x"`
	Y *float64 `json:"y" yaml:"y"`
	Z *float64 `json:"z" yaml:"z"`
}

// LoadOutputConfig reads an OutputConfig document from path. The format
// is JSON unless the extension is .yaml/.yml. An empty path returns the
// defaults.
func LoadOutputConfig(path string) (OutputConfig, error) {
	if path == "" {
		return DefaultOutputConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOutputConfig(), errors.WrapInvalid(errors.ErrConfigNotFound,
				"transform", "LoadOutputConfig", "reading "+path)
		}
		return DefaultOutputConfig(), errors.WrapInvalid(err, "transform", "LoadOutputConfig", "reading "+path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseOutputConfigYAML(raw)
	default:
		return ParseOutputConfigJSON(raw)
	}
}

// ParseOutputConfigJSON decodes a JSON OutputConfig document, applying
// defaults for absent fields.
func ParseOutputConfigJSON(raw []byte) (OutputConfig, error) {
	var doc outputConfigDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return DefaultOutputConfig(), errors.WrapInvalid(err, "transform", "ParseOutputConfigJSON", "json parsing")
	}
	return doc.resolve(), nil
}

// ParseOutputConfigYAML decodes a YAML OutputConfig document, applying
// defaults for absent fields.
func ParseOutputConfigYAML(raw []byte) (OutputConfig, error) {
	var doc outputConfigDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return DefaultOutputConfig(), errors.WrapInvalid(err, "transform", "ParseOutputConfigYAML", "yaml parsing")
	}
	return doc.resolve(), nil
}

// resolve merges a parsed document with the documented defaults.
// targetFrameDegrees is converted to radians at load time; an explicit
// targetFrame (already radians) wins if both are present.
func (doc *outputConfigDoc) resolve() OutputConfig {
	cfg := DefaultOutputConfig()

	if doc.IncludeFormats != nil {
		cfg.IncludeFormats = *doc.IncludeFormats
	}
	if doc.IncludeOrientation != nil {
		cfg.IncludeOrientation = *doc.IncludeOrientation
	}
	if doc.Scale != nil {
		cfg.Scale = *doc.Scale
	}
	if doc.OutputAxes != nil {
		// Absent axis components keep the 1.0 default individually
		if doc.OutputAxes.X != nil {
			cfg.OutputAxes.X = *doc.OutputAxes.X
		}
		if doc.OutputAxes.Y != nil {
			cfg.OutputAxes.Y = *doc.OutputAxes.Y
		}
		if doc.OutputAxes.Z != nil {
			cfg.OutputAxes.Z = *doc.OutputAxes.Z
		}
	}

	switch {
	case doc.TargetFrame != nil:
		frame := *doc.TargetFrame
		cfg.TargetFrame = &frame
	case doc.TargetFrameDegrees != nil:
		frame := *doc.TargetFrameDegrees
		frame.XRot = frame.XRot * math.Pi / 180
		frame.YRot = frame.YRot * math.Pi / 180
		frame.ZRot = frame.ZRot * math.Pi / 180
		cfg.TargetFrame = &frame
	}

	return cfg
}
