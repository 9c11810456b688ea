// Package main implements the entry point for the televoodoo
// peripheral: it advertises a pose session, transforms incoming
// samples, and fans the event stream out to the configured sinks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Mana-Robotics/televoodoo-viewer/config"
	"github.com/Mana-Robotics/televoodoo-viewer/dispatch"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/heartbeat"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
	"github.com/Mana-Robotics/televoodoo-viewer/natsclient"
	"github.com/Mana-Robotics/televoodoo-viewer/output/filelog"
	"github.com/Mana-Robotics/televoodoo-viewer/output/mqttpub"
	"github.com/Mana-Robotics/televoodoo-viewer/output/natspub"
	"github.com/Mana-Robotics/televoodoo-viewer/output/wsviewer"
	"github.com/Mana-Robotics/televoodoo-viewer/peripheral"
	"github.com/Mana-Robotics/televoodoo-viewer/session"
	"github.com/Mana-Robotics/televoodoo-viewer/transform"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "televoodoo"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(&cfg, cliCfg)

	if cliCfg.Validate {
		slog.Info("Configuration is valid", "path", cliCfg.ConfigPath)
		return nil
	}

	sess, err := resolveSession(cfg)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	ctx := context.Background()
	registry := metric.NewRegistry()

	sink, cleanup, err := buildSinks(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	viewer, err := startViewer(ctx, cfg, registry, logger)
	if err != nil {
		return err
	}
	if viewer != nil {
		sink = append(sink, viewer)
		defer func() { _ = viewer.Stop(cliCfg.ShutdownTimeout) }()
	}

	stopMetrics, err := startMetricsServer(cfg, registry)
	if err != nil {
		return err
	}
	defer stopMetrics()

	p, dispatcher, err := buildPeripheral(cfg, cliCfg, sess, sink, registry, logger)
	if err != nil {
		return err
	}

	return runWithSignalHandling(ctx, p, dispatcher, cliCfg, logger)
}

// applyFlagOverrides lets CLI flags win over the config document
func applyFlagOverrides(cfg *config.Config, cliCfg *CLIConfig) {
	if cliCfg.Name != "" {
		cfg.Session.Name = cliCfg.Name
		cfg.Session.Code = cliCfg.Code
	}
	if cliCfg.Hz > 0 {
		cfg.Sim.Hz = cliCfg.Hz
	}
	if cliCfg.Duration > 0 {
		cfg.Sim.Duration = cliCfg.Duration
	}
}

// resolveSession uses the pinned identity when configured, otherwise
// generates a fresh one.
func resolveSession(cfg config.Config) (session.Session, error) {
	if cfg.Session.Name != "" {
		return session.Session{Name: cfg.Session.Name, Code: cfg.Session.Code}, nil
	}
	return session.Generate()
}

// buildSinks assembles the event sinks enabled by configuration. The
// console sink on stdout is always present.
func buildSinks(
	ctx context.Context,
	cfg config.Config,
	registry *metric.Registry,
	logger *slog.Logger,
) (event.Multi, func(), error) {
	sinks := event.Multi{event.NewConsole(os.Stdout, logger)}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.FileLog != nil {
		writer := filelog.New(filelog.Deps{
			Path:   cfg.FileLog.Path,
			Append: cfg.FileLog.Append,
			Logger: logger.With("component", "filelog"),
		})
		if err := writer.Open(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open event log: %w", err)
		}
		cleanups = append(cleanups, func() { _ = writer.Close() })
		sinks = append(sinks, writer)
	}

	if cfg.NATS != nil {
		var opts []natsclient.ClientOption
		opts = append(opts, natsclient.WithName(appName))
		if cfg.NATS.Username != "" {
			opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
		}
		if cfg.NATS.Token != "" {
			opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
		}

		client, err := natsclient.NewClient(cfg.NATS.URL, opts...)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create NATS client: %w", err)
		}

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = client.Connect(connectCtx)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}
		cleanups = append(cleanups, func() { _ = client.Close(ctx) })

		sinks = append(sinks, natspub.New(natspub.Deps{
			Client:        client,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			Logger:        logger.With("component", "natspub"),
			Metrics:       registry,
		}))
	}

	if cfg.MQTT != nil {
		publisher := mqttpub.New(mqttpub.Deps{
			BrokerURL:   cfg.MQTT.URL,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Logger:      logger.With("component", "mqttpub"),
			Metrics:     registry,
		})

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to MQTT broker: %w", err)
		}
		cleanups = append(cleanups, publisher.Close)
		sinks = append(sinks, publisher)
	}

	return sinks, cleanup, nil
}

// startViewer brings up the WebSocket viewer endpoint if configured
func startViewer(
	ctx context.Context,
	cfg config.Config,
	registry *metric.Registry,
	logger *slog.Logger,
) (*wsviewer.Server, error) {
	if cfg.Viewer == nil {
		return nil, nil
	}

	viewer := wsviewer.New(wsviewer.Deps{
		Port:    cfg.Viewer.Port,
		Path:    cfg.Viewer.Path,
		Logger:  logger.With("component", "wsviewer"),
		Metrics: registry,
	})
	if err := viewer.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize viewer: %w", err)
	}
	if err := viewer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start viewer: %w", err)
	}
	return viewer, nil
}

// startMetricsServer exposes the Prometheus endpoint if configured
func startMetricsServer(cfg config.Config, registry *metric.Registry) (func(), error) {
	if cfg.Metrics == nil {
		return func() {}, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Metrics endpoint listening", "addr", server.Addr)

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return stop, nil
}

// buildPeripheral wires the session, transformer, heartbeat, dispatcher
// and transport backend together.
func buildPeripheral(
	cfg config.Config,
	cliCfg *CLIConfig,
	sess session.Session,
	sink event.Sink,
	registry *metric.Registry,
	logger *slog.Logger,
) (*peripheral.Peripheral, *dispatch.Dispatcher, error) {
	transformer := transform.NewTransformer(cfg.Output)

	// The heartbeat notify target is the BLE characteristic, which does
	// not exist yet; bind it late through the closure.
	var bleBackend *peripheral.BLEBackend
	hb := heartbeat.New(heartbeat.Deps{
		Interval: cfg.Heartbeat.Interval,
		Sink:     sink,
		Logger:   logger.With("component", "heartbeat"),
		Metrics:  registry,
		Notify: func(value []byte) {
			if bleBackend != nil {
				bleBackend.NotifyHeartbeat(value)
			}
		},
	})

	dispatcher := dispatch.New(dispatch.Deps{
		Session:     sess,
		Transformer: transformer,
		Heartbeat:   hb,
		Sink:        sink,
		Logger:      logger.With("component", "dispatch"),
		Metrics:     registry,
	})

	var backend peripheral.Backend
	switch cliCfg.Source {
	case "sim":
		backend = peripheral.NewSimBackend(peripheral.SimDeps{
			Dispatcher: dispatcher,
			Hz:         cfg.Sim.Hz,
			Duration:   cfg.Sim.Duration,
			Sink:       sink,
			Logger:     logger.With("component", "sim"),
		})
	default:
		bleBackend = peripheral.NewBLEBackend(peripheral.BLEDeps{
			Session:    sess,
			Dispatcher: dispatcher,
			Sink:       sink,
			Logger:     logger.With("component", "ble"),
		})
		backend = bleBackend
	}

	p := peripheral.New(peripheral.Deps{
		Session:    sess,
		Dispatcher: dispatcher,
		Heartbeat:  hb,
		Backend:    backend,
		Sink:       sink,
		Logger:     logger.With("component", "peripheral"),
	})
	if err := p.Initialize(); err != nil {
		return nil, nil, fmt.Errorf("initialize peripheral: %w", err)
	}
	return p, dispatcher, nil
}

// runWithSignalHandling starts the peripheral and blocks until a
// shutdown signal, or the configured duration elapses.
func runWithSignalHandling(
	ctx context.Context,
	p *peripheral.Peripheral,
	dispatcher *dispatch.Dispatcher,
	cliCfg *CLIConfig,
	logger *slog.Logger,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	runCtx := signalCtx
	if cliCfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(signalCtx, cliCfg.Duration)
		defer cancel()
	}

	if err := p.Start(runCtx); err != nil {
		return fmt.Errorf("start peripheral: %w", err)
	}
	slog.Info("Peripheral running", "session", p.Session().Name, "source", cliCfg.Source)

	if cliCfg.PollHz > 0 {
		go pollLatest(runCtx, dispatcher, cliCfg.PollHz, logger)
	}

	<-runCtx.Done()
	slog.Info("Shutting down")

	if err := p.Stop(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("Shutdown complete")
	return nil
}

// pollLatest periodically logs the most recent transformed output
func pollLatest(ctx context.Context, dispatcher *dispatch.Dispatcher, hz float64, logger *slog.Logger) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if latest := dispatcher.Latest(); latest != nil {
				logger.Info("Latest output", "output", latest)
			}
		}
	}
}
