package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mana-Robotics/televoodoo-viewer/transform"
)

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, transform.DefaultOutputConfig(), cfg.Output)
	assert.Equal(t, time.Second, cfg.Heartbeat.Interval)
	assert.Equal(t, 30.0, cfg.Sim.Hz)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OutputSettingsAtTopLevel(t *testing.T) {
	raw := []byte(`{
		"includeFormats": {"absolute_input": true, "delta_transformed": true},
		"scale": 2.0,
		"outputAxes": {"z": -1},
		"nats": {"url": "nats://localhost:4222"}
	}`)
	cfg, err := Parse(raw, false)
	require.NoError(t, err)

	assert.True(t, cfg.Output.IncludeFormats.DeltaTransformed)
	assert.False(t, cfg.Output.IncludeFormats.AbsoluteTransformed)
	assert.Equal(t, 2.0, cfg.Output.Scale)
	assert.Equal(t, -1.0, cfg.Output.OutputAxes.Z)

	require.NotNil(t, cfg.NATS)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Nil(t, cfg.MQTT)
	assert.Nil(t, cfg.Viewer)
}

func TestParse_SessionOverride(t *testing.T) {
	cfg, err := Parse([]byte(`{"session": {"name": "prsntrZZ", "code": "AAAAAA"}}`), false)
	require.NoError(t, err)
	assert.Equal(t, "prsntrZZ", cfg.Session.Name)
	assert.Equal(t, "AAAAAA", cfg.Session.Code)
}

func TestParse_SessionNameWithoutCode(t *testing.T) {
	_, err := Parse([]byte(`{"session": {"name": "prsntrZZ"}}`), false)
	assert.Error(t, err)
}

func TestParse_InvalidSinkSections(t *testing.T) {
	cases := []string{
		`{"nats": {}}`,
		`{"mqtt": {}}`,
		`{"mqtt": {"url": "tcp://localhost:1883", "qos": 3}}`,
		`{"viewer": {"port": 80}}`,
		`{"fileLog": {}}`,
		`{"metrics": {"port": 99}}`,
	}
	for _, raw := range cases {
		_, err := Parse([]byte(raw), false)
		assert.Error(t, err, raw)
	}
}

func TestParse_Malformed(t *testing.T) {
	cfg, err := Parse([]byte(`{not json`), false)
	assert.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := []byte("scale: 0.5\nviewer:\n  port: 8090\nmqtt:\n  url: tcp://localhost:1883\n  qos: 1\n")
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Output.Scale)
	require.NotNil(t, cfg.Viewer)
	assert.Equal(t, 8090, cfg.Viewer.Port)
	require.NotNil(t, cfg.MQTT)
	assert.EqualValues(t, 1, cfg.MQTT.QoS)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voodoo_settings.json")
	doc := []byte(`{"includeFormats":{"absolute_input":true},"targetFrameDegrees":{"z_rot":90}}`)
	require.NoError(t, os.WriteFile(path, doc, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Output.TargetFrame)
	assert.InDelta(t, 1.5707963267948966, cfg.Output.TargetFrame.ZRot, 1e-12)
}
