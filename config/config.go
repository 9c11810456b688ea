// Package config loads the application configuration document. The
// document's top level carries the pose output settings; optional
// sections enable the NATS, MQTT, viewer and file sinks and tune the
// simulated source.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/transform"
)

// Config represents the complete application configuration
type Config struct {
	// Output is parsed from the document's top-level fields
	// (includeFormats, includeOrientation, scale, outputAxes,
	// targetFrame / targetFrameDegrees).
	Output transform.OutputConfig `json:"-" yaml:"-"`

	Session   SessionConfig    `json:"session"   yaml:"session"`
	Heartbeat HeartbeatConfig  `json:"heartbeat" yaml:"heartbeat"`
	NATS      *NATSConfig      `json:"nats"      yaml:"nats"`
	MQTT      *MQTTConfig      `json:"mqtt"      yaml:"mqtt"`
	Viewer    *ViewerConfig    `json:"viewer"    yaml:"viewer"`
	FileLog   *FileLogConfig   `json:"fileLog"   yaml:"fileLog"`
	Sim       SimConfig        `json:"sim"       yaml:"sim"`
	Metrics   *MetricsConfig   `json:"metrics"   yaml:"metrics"`
}

// SessionConfig optionally pins the session identity instead of
// generating it. Both fields must be set together.
type SessionConfig struct {
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// HeartbeatConfig tunes the liveness counter
type HeartbeatConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// NATSConfig enables the NATS event sink
type NATSConfig struct {
	URL           string `json:"url"           yaml:"url"`
	SubjectPrefix string `json:"subjectPrefix" yaml:"subjectPrefix"`
	Username      string `json:"username"      yaml:"username"`
	Password      string `json:"password"      yaml:"password"`
	Token         string `json:"token"         yaml:"token"`
}

// MQTTConfig enables the MQTT event sink
type MQTTConfig struct {
	URL         string `json:"url"         yaml:"url"`
	ClientID    string `json:"clientId"    yaml:"clientId"`
	Username    string `json:"username"    yaml:"username"`
	Password    string `json:"password"    yaml:"password"`
	TopicPrefix string `json:"topicPrefix" yaml:"topicPrefix"`
	QoS         byte   `json:"qos"         yaml:"qos"`
}

// ViewerConfig enables the WebSocket viewer endpoint
type ViewerConfig struct {
	Port int    `json:"port" yaml:"port"`
	Path string `json:"path" yaml:"path"`
}

// FileLogConfig enables the JSONL event log
type FileLogConfig struct {
	Path   string `json:"path"   yaml:"path"`
	Append bool   `json:"append" yaml:"append"`
}

// SimConfig tunes the simulated pose source
type SimConfig struct {
	Hz       float64       `json:"hz"       yaml:"hz"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// MetricsConfig enables the Prometheus metrics endpoint
type MetricsConfig struct {
	Port int `json:"port" yaml:"port"`
}

// Default returns the configuration used when no document is supplied
func Default() Config {
	return Config{
		Output:    transform.DefaultOutputConfig(),
		Heartbeat: HeartbeatConfig{Interval: time.Second},
		Sim:       SimConfig{Hz: 30},
	}
}

// Load reads a configuration document from path. The format is JSON
// unless the extension is .yaml/.yml. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), errors.WrapInvalid(errors.ErrConfigNotFound, "config", "Load", "reading "+path)
		}
		return Default(), errors.WrapInvalid(err, "config", "Load", "reading "+path)
	}

	yamlFormat := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		yamlFormat = true
	}
	return Parse(raw, yamlFormat)
}

// Parse decodes a configuration document. The pose output settings
// share the document's top level with the application sections.
func Parse(raw []byte, yamlFormat bool) (Config, error) {
	cfg := Default()

	var err error
	if yamlFormat {
		err = yaml.Unmarshal(raw, &cfg)
	} else {
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return Default(), errors.WrapInvalid(err, "config", "Parse", "document parsing")
	}

	if yamlFormat {
		cfg.Output, err = transform.ParseOutputConfigYAML(raw)
	} else {
		cfg.Output, err = transform.ParseOutputConfigJSON(raw)
	}
	if err != nil {
		return Default(), err
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if (c.Session.Name == "") != (c.Session.Code == "") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"session name and code must be set together")
	}
	if c.Heartbeat.Interval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("negative heartbeat interval %v", c.Heartbeat.Interval))
	}
	if c.NATS != nil && c.NATS.URL == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "nats.url is required")
	}
	if c.MQTT != nil {
		if c.MQTT.URL == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "mqtt.url is required")
		}
		if c.MQTT.QoS > 2 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("invalid mqtt qos %d", c.MQTT.QoS))
		}
	}
	if c.Viewer != nil && (c.Viewer.Port < 1024 || c.Viewer.Port > 65535) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("invalid viewer port %d", c.Viewer.Port))
	}
	if c.Metrics != nil && (c.Metrics.Port < 1024 || c.Metrics.Port > 65535) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("invalid metrics port %d", c.Metrics.Port))
	}
	if c.FileLog != nil && c.FileLog.Path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate", "fileLog.path is required")
	}
	if c.Sim.Hz < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("negative sim rate %v", c.Sim.Hz))
	}
	return nil
}
