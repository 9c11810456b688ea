package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	Source          string
	Name            string
	Code            string
	Hz              float64
	PollHz          float64
	Duration        time.Duration
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("TELEVOODOO_CONFIG", ""),
		"Path to configuration file (env: TELEVOODOO_CONFIG)")

	flag.StringVar(&cfg.Source, "source",
		getEnv("TELEVOODOO_SOURCE", "ble"),
		"Pose source: ble, sim (env: TELEVOODOO_SOURCE)")

	flag.StringVar(&cfg.Name, "name", "",
		"Fixed session name (default: generated)")

	flag.StringVar(&cfg.Code, "code", "",
		"Fixed session code (default: generated)")

	flag.Float64Var(&cfg.Hz, "hz", 0,
		"Simulated pose rate in Hz (source=sim, default 30)")

	flag.Float64Var(&cfg.PollHz, "poll-hz", 0,
		"Rate for logging the latest transformed output, 0 to disable")

	flag.DurationVar(&cfg.Duration, "duration", 0,
		"Stop after this long, 0 to run until interrupted")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("TELEVOODOO_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: TELEVOODOO_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("TELEVOODOO_LOG_FORMAT", "text"),
		"Log format: json, text (env: TELEVOODOO_LOG_FORMAT)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("TELEVOODOO_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: TELEVOODOO_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.Source != "ble" && cfg.Source != "sim" {
		return fmt.Errorf("invalid source: %s (want ble or sim)", cfg.Source)
	}

	if (cfg.Name == "") != (cfg.Code == "") {
		return fmt.Errorf("--name and --code must be set together")
	}

	if cfg.Hz < 0 {
		return fmt.Errorf("invalid rate: %v Hz", cfg.Hz)
	}
	if cfg.PollHz < 0 {
		return fmt.Errorf("invalid poll rate: %v Hz", cfg.PollHz)
	}

	if !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - 6-DoF pose streaming peripheral

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Advertise over BLE with generated session identity
  %s

  # Run against a settings document
  %s --config=voodoo_settings.json

  # Simulate a headset at 60 Hz for half a minute
  %s --source=sim --hz=60 --duration=30s

  # Pin the session identity for scripted clients
  %s --name=prsntrAB --code=ABC123

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
