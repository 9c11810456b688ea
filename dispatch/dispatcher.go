package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
	"github.com/Mana-Robotics/televoodoo-viewer/pose"
	"github.com/Mana-Robotics/televoodoo-viewer/session"
	"github.com/Mana-Robotics/televoodoo-viewer/transform"
)

// HeartbeatSource serves the current heartbeat counter value for reads.
// Reading must not increment the counter.
type HeartbeatSource interface {
	Bytes() []byte
}

// Deps holds runtime dependencies for the dispatcher
type Deps struct {
	Session     session.Session
	Transformer *transform.Transformer
	Heartbeat   HeartbeatSource
	Sink        event.Sink
	Logger      *slog.Logger
	Metrics     *metric.Registry
}

// Dispatcher classifies inbound byte buffers by characteristic and
// converts them to events. Every entry point may be called from
// transport callback threads concurrently with the heartbeat ticker;
// per-write failures never propagate past the dispatcher, they become
// error events.
type Dispatcher struct {
	session     session.Session
	transformer *transform.Transformer
	heartbeat   HeartbeatSource
	sink        event.Sink
	logger      *slog.Logger
	metrics     *Metrics

	// Latest output for polling consumers. The stored map is never
	// mutated after assembly, so handing it out under RLock is safe.
	latestMu sync.RWMutex
	latest   map[string]any
}

// New creates a dispatcher from deps
func New(deps Deps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "dispatch")
	}
	sink := deps.Sink
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	return &Dispatcher{
		session:     deps.Session,
		transformer: deps.Transformer,
		heartbeat:   deps.Heartbeat,
		sink:        sink,
		logger:      logger,
		metrics:     newMetrics(deps.Metrics),
	}
}

// HandleWrite routes one inbound write to its channel decoder
func (d *Dispatcher) HandleWrite(char Characteristic, data []byte) {
	if d.metrics != nil {
		d.metrics.writesTotal.WithLabelValues(char.String()).Inc()
	}

	switch char {
	case CharAuth:
		d.handleAuth(data)
	case CharControl:
		d.handleControl(data)
	case CharPose:
		d.handlePose(data)
	case CharHeartbeat:
		d.sink.Emit(event.Warn("heartbeat characteristic is read-only"))
	default:
		d.sink.Emit(event.Warn(fmt.Sprintf("write to unknown characteristic (%d bytes)", len(data))))
	}
}

// HandleWriteUUID routes a write addressed by raw characteristic UUID
func (d *Dispatcher) HandleWriteUUID(uuid string, data []byte) {
	d.HandleWrite(FromUUID(uuid), data)
}

func (d *Dispatcher) handleAuth(data []byte) {
	switch session.CheckAuth(d.session, data) {
	case session.AuthOK:
		if d.metrics != nil {
			d.metrics.authOK.Inc()
		}
		d.sink.Emit(event.AuthOK())
	case session.AuthMismatch:
		if d.metrics != nil {
			d.metrics.authFailed.Inc()
		}
		d.sink.Emit(event.AuthFailed())
	case session.AuthMalformed:
		if d.metrics != nil {
			d.metrics.decodeErrors.Inc()
		}
		d.sink.Emit(event.Error("auth write: payload is not valid UTF-8"))
	}
}

func (d *Dispatcher) handleControl(data []byte) {
	if !utf8.Valid(data) {
		if d.metrics != nil {
			d.metrics.decodeErrors.Inc()
		}
		d.sink.Emit(event.Error("control write: payload is not valid UTF-8"))
		return
	}
	// Commands pass through verbatim; interpretation is the consumer's
	// concern.
	d.sink.Emit(event.Control(string(data)))
}

func (d *Dispatcher) handlePose(data []byte) {
	p, err := pose.Decode(data)
	if err != nil {
		if d.metrics != nil {
			d.metrics.decodeErrors.Inc()
		}
		d.logger.Debug("Dropped pose sample", "error", err)
		d.sink.Emit(event.Error(fmt.Sprintf("pose json: %v", err)))
		return
	}

	out := d.transformer.Transform(p)

	d.latestMu.Lock()
	d.latest = out
	d.latestMu.Unlock()

	if d.metrics != nil {
		d.metrics.posesTransformed.Inc()
	}
	d.sink.Emit(event.Pose(out))
}

// HandleRead serves a read request on a characteristic. Only the
// heartbeat channel is readable; reading emits a heartbeat event but
// does not advance the counter.
func (d *Dispatcher) HandleRead(char Characteristic) []byte {
	if char != CharHeartbeat || d.heartbeat == nil {
		return nil
	}
	d.sink.Emit(event.Heartbeat())
	return d.heartbeat.Bytes()
}

// HandleSubscribe reports a notification subscription. Purely
// observational; dispatch state does not change.
func (d *Dispatcher) HandleSubscribe(char Characteristic) {
	d.sink.Emit(event.Subscribe(char.UUID()))
}

// HandleUnsubscribe reports a dropped notification subscription
func (d *Dispatcher) HandleUnsubscribe(char Characteristic) {
	d.sink.Emit(event.Unsubscribe(char.UUID()))
}

// Latest returns the most recent transformed output, or nil if no pose
// has been processed yet.
func (d *Dispatcher) Latest() map[string]any {
	d.latestMu.RLock()
	defer d.latestMu.RUnlock()
	return d.latest
}
