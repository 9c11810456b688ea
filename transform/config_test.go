package transform

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOutputConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadOutputConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputConfig(), cfg)
}

func TestLoadOutputConfig_MissingFile(t *testing.T) {
	cfg, err := LoadOutputConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	// Falls back to documented defaults rather than failing hard
	assert.Equal(t, DefaultOutputConfig(), cfg)
}

func TestParseOutputConfigJSON_Defaults(t *testing.T) {
	cfg, err := ParseOutputConfigJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputConfig(), cfg)
}

func TestParseOutputConfigJSON_PartialBlocks(t *testing.T) {
	raw := []byte(`{
		"includeFormats": {"absolute_input": true, "delta_input": true},
		"scale": 2.5,
		"outputAxes": {"z": -1}
	}`)
	cfg, err := ParseOutputConfigJSON(raw)
	require.NoError(t, err)

	// A present block is taken as-is: absent members are false
	assert.True(t, cfg.IncludeFormats.AbsoluteInput)
	assert.True(t, cfg.IncludeFormats.DeltaInput)
	assert.False(t, cfg.IncludeFormats.AbsoluteTransformed)

	assert.Equal(t, 2.5, cfg.Scale)

	// Absent axis members individually keep the 1.0 default
	assert.Equal(t, 1.0, cfg.OutputAxes.X)
	assert.Equal(t, 1.0, cfg.OutputAxes.Y)
	assert.Equal(t, -1.0, cfg.OutputAxes.Z)
}

func TestParseOutputConfigJSON_TargetFrameRadians(t *testing.T) {
	raw := []byte(`{"targetFrame": {"x": 1, "x_rot": 0.5}}`)
	cfg, err := ParseOutputConfigJSON(raw)
	require.NoError(t, err)

	require.NotNil(t, cfg.TargetFrame)
	assert.Equal(t, 1.0, cfg.TargetFrame.X)
	assert.Equal(t, 0.5, cfg.TargetFrame.XRot)
}

func TestParseOutputConfigJSON_TargetFrameDegrees(t *testing.T) {
	raw := []byte(`{"targetFrameDegrees": {"x_rot": 90, "y_rot": -45, "z_rot": 180}}`)
	cfg, err := ParseOutputConfigJSON(raw)
	require.NoError(t, err)

	require.NotNil(t, cfg.TargetFrame)
	assert.InDelta(t, math.Pi/2, cfg.TargetFrame.XRot, 1e-12)
	assert.InDelta(t, -math.Pi/4, cfg.TargetFrame.YRot, 1e-12)
	assert.InDelta(t, math.Pi, cfg.TargetFrame.ZRot, 1e-12)
}

func TestParseOutputConfigJSON_RadiansWinOverDegrees(t *testing.T) {
	raw := []byte(`{"targetFrame": {"x_rot": 0.1}, "targetFrameDegrees": {"x_rot": 90}}`)
	cfg, err := ParseOutputConfigJSON(raw)
	require.NoError(t, err)

	require.NotNil(t, cfg.TargetFrame)
	assert.Equal(t, 0.1, cfg.TargetFrame.XRot)
}

func TestParseOutputConfigJSON_Malformed(t *testing.T) {
	cfg, err := ParseOutputConfigJSON([]byte(`{not json`))
	assert.Error(t, err)
	assert.Equal(t, DefaultOutputConfig(), cfg)
}

func TestLoadOutputConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	doc := []byte("includeFormats:\n  absolute_transformed: true\nscale: 0.5\noutputAxes:\n  y: 2\n")
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	cfg, err := LoadOutputConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IncludeFormats.AbsoluteTransformed)
	assert.False(t, cfg.IncludeFormats.AbsoluteInput)
	assert.Equal(t, 0.5, cfg.Scale)
	assert.Equal(t, 2.0, cfg.OutputAxes.Y)
}

func TestLoadOutputConfig_JSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voodoo_settings.json")
	doc := []byte(`{"includeFormats":{"absolute_input":true,"delta_input":true},"scale":2}`)
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	cfg, err := LoadOutputConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Scale)
	assert.True(t, cfg.IncludeFormats.DeltaInput)
}
