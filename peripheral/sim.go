package peripheral

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mana-Robotics/televoodoo-viewer/dispatch"
	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/pose"
)

// DefaultSimHz is the sample rate when none is configured
const DefaultSimHz = 30.0

// SimDeps holds runtime dependencies for the simulated backend
type SimDeps struct {
	Dispatcher *dispatch.Dispatcher
	Hz         float64
	Duration   time.Duration // 0 means run until stopped
	Seed       int64         // 0 means time-based
	Sink       event.Sink
	Logger     *slog.Logger
}

// SimBackend fabricates pose writes locally so the pipeline can run
// without a connected headset. It emits a random walk starting at the
// origin with identity orientation; the first sample carries
// pose_start so the origin latches immediately.
type SimBackend struct {
	dispatcher *dispatch.Dispatcher
	hz         float64
	duration   time.Duration
	sink       event.Sink
	logger     *slog.Logger
	rng        *rand.Rand

	shutdown chan struct{}
	done     chan struct{}
	running  atomic.Bool
	mu       sync.Mutex

	samples atomic.Int64
}

var _ Backend = (*SimBackend)(nil)

// NewSimBackend creates a simulated backend from deps
func NewSimBackend(deps SimDeps) *SimBackend {
	hz := deps.Hz
	if hz <= 0 {
		hz = DefaultSimHz
	}
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "sim")
	}
	sink := deps.Sink
	if sink == nil {
		sink = event.SinkFunc(func(event.Event) {})
	}
	return &SimBackend{
		dispatcher: deps.Dispatcher,
		hz:         hz,
		duration:   deps.Duration,
		sink:       sink,
		logger:     logger,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Initialize validates the configuration
func (s *SimBackend) Initialize() error {
	if s.dispatcher == nil {
		return errors.WrapInvalid(fmt.Errorf("nil dispatcher"), "sim", "Initialize", "dispatcher validation")
	}
	if s.hz <= 0 || s.hz > 1000 {
		return errors.WrapInvalid(fmt.Errorf("invalid rate %v Hz", s.hz), "sim", "Initialize", "rate validation")
	}
	return nil
}

// Start begins generating pose samples
func (s *SimBackend) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})
	s.running.Store(true)

	// A simulated central is immediately subscribed to everything a
	// real viewer would be.
	s.sink.Emit(event.Subscribe(dispatch.PoseCharUUID))
	s.sink.Emit(event.Subscribe(dispatch.HeartbeatCharUUID))

	go func() {
		defer close(s.done)
		s.generate(ctx)
	}()

	s.logger.Info("Simulated source running", "hz", s.hz)
	return nil
}

// Stop halts sample generation
func (s *SimBackend) Stop(timeout time.Duration) error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)

	s.mu.Lock()
	if s.shutdown != nil {
		select {
		case <-s.shutdown:
		default:
			close(s.shutdown)
		}
	}
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"sim", "Stop", "graceful shutdown")
	}

	s.sink.Emit(event.Unsubscribe(dispatch.PoseCharUUID))
	s.sink.Emit(event.Unsubscribe(dispatch.HeartbeatCharUUID))
	return nil
}

// Samples returns the number of samples generated so far
func (s *SimBackend) Samples() int64 {
	return s.samples.Load()
}

func (s *SimBackend) generate(ctx context.Context) {
	interval := time.Duration(float64(time.Second) / s.hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.duration > 0 {
		timer := time.NewTimer(s.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	current := pose.Default()
	current.PoseStart = true

	for {
		s.emit(current)
		current = s.step(current)

		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-deadline:
			s.logger.Info("Simulated source finished", "samples", s.samples.Load())
			return
		case <-ticker.C:
		}
	}
}

// step advances the random walk by a few millimeters per axis
func (s *SimBackend) step(p pose.Pose) pose.Pose {
	p.PoseStart = false
	p.X += (s.rng.Float64() - 0.5) * 0.01
	p.Y += (s.rng.Float64() - 0.5) * 0.01
	p.Z += (s.rng.Float64() - 0.5) * 0.01
	return p
}

func (s *SimBackend) emit(p pose.Pose) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.dispatcher.HandleWrite(dispatch.CharPose, data)
	s.samples.Add(1)
}
