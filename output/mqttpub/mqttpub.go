// Package mqttpub publishes the event stream to an MQTT broker, one
// topic per event type under a common prefix.
package mqttpub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
)

// DefaultTopicPrefix is the topic prefix when none is configured
const DefaultTopicPrefix = "televoodoo/events"

// Deps holds runtime dependencies for the MQTT publisher
type Deps struct {
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Logger      *slog.Logger
	Metrics     *metric.Registry
}

// Publisher is an event sink publishing each event to
// <prefix>/<type>. Delivery is fire-and-forget; a slow or absent
// broker drops events instead of stalling the stream.
type Publisher struct {
	client mqtt.Client
	prefix string
	qos    byte
	logger *slog.Logger

	published atomic.Int64
	dropped   atomic.Int64

	publishedMetric prometheus.Counter
	droppedMetric   prometheus.Counter
}

var _ event.Sink = (*Publisher)(nil)

// New creates an MQTT event publisher from deps. Connect must be
// called before events flow.
func New(deps Deps) *Publisher {
	prefix := deps.TopicPrefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	clientID := deps.ClientID
	if clientID == "" {
		clientID = "televoodoo"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "mqttpub")
	}

	p := &Publisher{
		prefix: prefix,
		qos:    deps.QoS,
		logger: logger,
	}

	options := mqtt.NewClientOptions().
		AddBroker(deps.BrokerURL).
		SetClientID(clientID).
		SetUsername(deps.Username).
		SetPassword(deps.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		})
	p.client = mqtt.NewClient(options)

	if deps.Metrics != nil {
		p.publishedMetric = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "mqttpub",
			Name:      "events_published_total",
			Help:      "Events published to MQTT",
		})
		p.droppedMetric = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "mqttpub",
			Name:      "events_dropped_total",
			Help:      "Events dropped because publishing failed",
		})
		_ = deps.Metrics.RegisterCounter("mqttpub", "events_published", p.publishedMetric)
		_ = deps.Metrics.RegisterCounter("mqttpub", "events_dropped", p.droppedMetric)
	}

	return p
}

// Connect establishes the broker connection, honoring ctx for the wait
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "mqttpub", "Connect", "connection cancelled")
	}
	if err := token.Error(); err != nil {
		return errors.WrapTransient(err, "mqttpub", "Connect", "broker connection")
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight messages a
// short grace period.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// Emit publishes one event. Implements event.Sink.
func (p *Publisher) Emit(e event.Event) {
	if !p.client.IsConnected() {
		p.drop(e, errors.ErrNoConnection)
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		p.drop(e, err)
		return
	}

	topic := fmt.Sprintf("%s/%s", p.prefix, e.Type)
	token := p.client.Publish(topic, p.qos, false, data)
	// Fire-and-forget; surface failures asynchronously
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			p.dropped.Add(1)
			if p.droppedMetric != nil {
				p.droppedMetric.Inc()
			}
			p.logger.Warn("MQTT publish failed", "topic", topic, "error", err)
		}
	}()

	p.published.Add(1)
	if p.publishedMetric != nil {
		p.publishedMetric.Inc()
	}
}

func (p *Publisher) drop(e event.Event, err error) {
	p.dropped.Add(1)
	if p.droppedMetric != nil {
		p.droppedMetric.Inc()
	}
	p.logger.Warn("Dropped event", "type", e.Type, "error", err)
}

// Published returns the number of events handed to the broker so far
func (p *Publisher) Published() int64 {
	return p.published.Load()
}

// Dropped returns the number of events dropped so far
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}
