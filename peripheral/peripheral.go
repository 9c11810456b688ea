// Package peripheral runs the advertised pose session: it owns the
// session identity, the transport backend delivering characteristic
// traffic, and the heartbeat, and ties their lifecycles together.
package peripheral

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Mana-Robotics/televoodoo-viewer/component"
	"github.com/Mana-Robotics/televoodoo-viewer/dispatch"
	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/heartbeat"
	"github.com/Mana-Robotics/televoodoo-viewer/session"
)

// Backend is a transport that surfaces characteristic traffic to the
// dispatcher. Implementations advertise the session (BLE) or fabricate
// traffic locally (sim).
type Backend interface {
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// Deps holds runtime dependencies for the peripheral
type Deps struct {
	Session    session.Session
	Dispatcher *dispatch.Dispatcher
	Heartbeat  *heartbeat.Counter
	Backend    Backend
	Sink       event.Sink
	Logger     *slog.Logger
}

// Peripheral orchestrates one session end to end
type Peripheral struct {
	session    session.Session
	dispatcher *dispatch.Dispatcher
	heartbeat  *heartbeat.Counter
	backend    Backend
	sink       event.Sink
	logger     *slog.Logger

	running   atomic.Bool
	startTime time.Time
}

var _ component.Lifecycle = (*Peripheral)(nil)

// New creates a peripheral from deps
func New(deps Deps) *Peripheral {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "peripheral")
	}
	sink := deps.Sink
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	return &Peripheral{
		session:    deps.Session,
		dispatcher: deps.Dispatcher,
		heartbeat:  deps.Heartbeat,
		backend:    deps.Backend,
		sink:       sink,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Meta returns the component metadata
func (p *Peripheral) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.session.Name,
		Type:        "peripheral",
		Description: fmt.Sprintf("pose session %s", p.session.Name),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (p *Peripheral) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:   p.running.Load(),
		LastCheck: time.Now(),
		Uptime:    time.Since(p.startTime),
	}
}

// Initialize validates deps and prepares the backend
func (p *Peripheral) Initialize() error {
	if p.dispatcher == nil {
		return errors.WrapInvalid(fmt.Errorf("nil dispatcher"), "peripheral", "Initialize", "dispatcher validation")
	}
	if p.backend == nil {
		return errors.WrapInvalid(fmt.Errorf("nil backend"), "peripheral", "Initialize", "backend validation")
	}
	if err := p.backend.Initialize(); err != nil {
		return errors.Wrap(err, "peripheral", "Initialize", "backend initialization")
	}
	return nil
}

// Start announces the session and brings up the heartbeat and the
// transport backend.
func (p *Peripheral) Start(ctx context.Context) error {
	if p.running.Load() {
		return nil
	}

	// The session event leads the stream so consumers always learn the
	// code before any auth outcome can reference it.
	p.sink.Emit(event.Session(p.session.Name, p.session.Code))
	p.logger.Info("Session ready", "name", p.session.Name)

	if p.heartbeat != nil {
		if err := p.heartbeat.Start(ctx); err != nil {
			return errors.Wrap(err, "peripheral", "Start", "heartbeat startup")
		}
	}

	if err := p.backend.Start(ctx); err != nil {
		if p.heartbeat != nil {
			_ = p.heartbeat.Stop(time.Second)
		}
		return errors.Wrap(err, "peripheral", "Start", "backend startup")
	}

	p.running.Store(true)
	p.startTime = time.Now()
	return nil
}

// Stop brings down the backend and the heartbeat
func (p *Peripheral) Stop(timeout time.Duration) error {
	if !p.running.Load() {
		return nil
	}
	p.running.Store(false)

	var errs []error
	if err := p.backend.Stop(timeout); err != nil {
		errs = append(errs, err)
	}
	if p.heartbeat != nil {
		if err := p.heartbeat.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(fmt.Errorf("%v", errs), "peripheral", "Stop", "shutdown")
	}
	return nil
}

// Session returns the session identity
func (p *Peripheral) Session() session.Session {
	return p.session
}
