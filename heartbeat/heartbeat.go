// Package heartbeat maintains the liveness counter exposed on the
// heartbeat characteristic. The counter increments once per interval
// and wraps at 2^32; its wire form is 4 bytes little-endian.
package heartbeat

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mana-Robotics/televoodoo-viewer/component"
	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
)

// DefaultInterval is the tick period when none is configured
const DefaultInterval = time.Second

// NotifyFunc delivers the encoded counter to subscribed centrals.
// Called from the ticker goroutine.
type NotifyFunc func(value []byte)

// Deps holds runtime dependencies for the heartbeat component
type Deps struct {
	Interval time.Duration
	Notify   NotifyFunc
	Sink     event.Sink
	Logger   *slog.Logger
	Metrics  *metric.Registry
}

// Counter is the ticking heartbeat component. The counter value is
// readable at any time via Bytes, concurrently with the ticker.
type Counter struct {
	interval time.Duration
	notify   NotifyFunc
	sink     event.Sink
	logger   *slog.Logger

	count atomic.Uint32

	shutdown  chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.Mutex
	wg        sync.WaitGroup

	errors atomic.Int64

	ticks prometheus.Counter
}

var _ component.Lifecycle = (*Counter)(nil)

// New creates a heartbeat counter from deps
func New(deps Deps) *Counter {
	interval := deps.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "heartbeat")
	}
	sink := deps.Sink
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}

	c := &Counter{
		interval:  interval,
		notify:    deps.Notify,
		sink:      sink,
		logger:    logger,
		startTime: time.Now(),
	}

	if deps.Metrics != nil {
		c.ticks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "heartbeat",
			Name:      "ticks_total",
			Help:      "Heartbeat counter increments",
		})
		_ = deps.Metrics.RegisterCounter("heartbeat", "ticks", c.ticks)
	}

	return c
}

// Meta returns the component metadata
func (c *Counter) Meta() component.Metadata {
	return component.Metadata{
		Name:        "heartbeat",
		Type:        "source",
		Description: fmt.Sprintf("liveness counter ticking every %v", c.interval),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (c *Counter) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    c.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(c.errors.Load()),
		Uptime:     time.Since(c.startTime),
	}
}

// Initialize validates the configuration
func (c *Counter) Initialize() error {
	if c.interval <= 0 {
		return errors.WrapInvalid(fmt.Errorf("invalid interval %v", c.interval),
			"heartbeat", "Initialize", "interval validation")
	}
	return nil
}

// Start begins ticking. Idempotent while running.
func (c *Counter) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return nil
	}

	c.shutdown = make(chan struct{})
	c.done = make(chan struct{})
	c.running.Store(true)
	c.startTime = time.Now()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		c.tickLoop()
	}()

	return nil
}

// Stop halts the ticker, waiting up to timeout for the loop to exit
func (c *Counter) Stop(timeout time.Duration) error {
	if !c.running.Load() {
		return nil
	}
	c.running.Store(false)

	c.mu.Lock()
	if c.shutdown != nil {
		select {
		case <-c.shutdown:
		default:
			close(c.shutdown)
		}
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"heartbeat", "Stop", "graceful shutdown")
	}
	return nil
}

func (c *Counter) tickLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Counter) tick() {
	c.count.Add(1)
	if c.ticks != nil {
		c.ticks.Inc()
	}
	c.sink.Emit(event.Heartbeat())
	if c.notify != nil {
		c.notify(c.Bytes())
	}
}

// Value returns the current counter value
func (c *Counter) Value() uint32 {
	return c.count.Load()
}

// Bytes returns the counter in its wire form, 4 bytes little-endian.
// Reading does not advance the counter.
func (c *Counter) Bytes() []byte {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, c.count.Load())
	return value
}
