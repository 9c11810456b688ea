// Package natspub publishes the event stream to NATS, one subject per
// event type under a common prefix.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
	"github.com/Mana-Robotics/televoodoo-viewer/natsclient"
)

// DefaultSubjectPrefix is the subject prefix when none is configured
const DefaultSubjectPrefix = "televoodoo.events"

// Envelope wraps an event for the wire with a correlation ID and
// publish timestamp.
type Envelope struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Event     event.Event `json:"event"`
}

// Deps holds runtime dependencies for the NATS publisher
type Deps struct {
	Client        *natsclient.Client
	SubjectPrefix string
	Logger        *slog.Logger
	Metrics       *metric.Registry
}

// Publisher is an event sink that publishes each event to
// <prefix>.<type>. Publish failures are logged and counted, never
// propagated; the stream must not stall on a slow broker.
type Publisher struct {
	client *natsclient.Client
	prefix string
	logger *slog.Logger

	published atomic.Int64
	dropped   atomic.Int64

	publishedMetric *prometheus.CounterVec
	droppedMetric   prometheus.Counter
}

var _ event.Sink = (*Publisher)(nil)

// New creates a NATS event publisher from deps
func New(deps Deps) *Publisher {
	prefix := deps.SubjectPrefix
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "natspub")
	}

	p := &Publisher{
		client: deps.Client,
		prefix: prefix,
		logger: logger,
	}

	if deps.Metrics != nil {
		p.publishedMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "natspub",
			Name:      "events_published_total",
			Help:      "Events published to NATS, by type",
		}, []string{"type"})
		p.droppedMetric = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "natspub",
			Name:      "events_dropped_total",
			Help:      "Events dropped because publishing failed",
		})
		_ = deps.Metrics.RegisterCounterVec("natspub", "events_published", p.publishedMetric)
		_ = deps.Metrics.RegisterCounter("natspub", "events_dropped", p.droppedMetric)
	}

	return p
}

// Emit publishes one event. Implements event.Sink.
func (p *Publisher) Emit(e event.Event) {
	envelope := Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Event:     e,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		p.drop(e, err)
		return
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, e.Type)
	if err := p.client.Publish(context.Background(), subject, data); err != nil {
		p.drop(e, err)
		return
	}

	p.published.Add(1)
	if p.publishedMetric != nil {
		p.publishedMetric.WithLabelValues(string(e.Type)).Inc()
	}
}

func (p *Publisher) drop(e event.Event, err error) {
	p.dropped.Add(1)
	if p.droppedMetric != nil {
		p.droppedMetric.Inc()
	}
	p.logger.Warn("Dropped event", "type", e.Type, "error", err)
}

// Published returns the number of events published so far
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Dropped returns the number of events dropped so far
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
