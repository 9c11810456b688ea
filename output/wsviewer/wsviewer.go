// Package wsviewer serves the event stream to browser viewers over
// WebSocket. Every connected client receives every event; clients that
// cannot keep up are disconnected rather than buffered without bound.
package wsviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mana-Robotics/televoodoo-viewer/component"
	"github.com/Mana-Robotics/televoodoo-viewer/errors"
	"github.com/Mana-Robotics/televoodoo-viewer/event"
	"github.com/Mana-Robotics/televoodoo-viewer/metric"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Deps holds runtime dependencies for the viewer server
type Deps struct {
	Port    int
	Path    string
	Logger  *slog.Logger
	Metrics *metric.Registry
}

// clientInfo holds per-connection state. Writes to the same connection
// are serialized through writeMu.
type clientInfo struct {
	conn        *websocket.Conn
	connectedAt time.Time
	writeMu     sync.Mutex
	closed      atomic.Bool
	closeOnce   sync.Once
}

// Server is both a lifecycle component and an event sink: Emit
// broadcasts each event as one JSON text frame to every connected
// viewer.
type Server struct {
	port   int
	path   string
	logger *slog.Logger

	server    *http.Server
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]*clientInfo
	clientsMu sync.RWMutex

	shutdown  chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.Mutex
	wg        sync.WaitGroup

	sendErrors atomic.Int64

	clientsGauge prometheus.Gauge
	framesSent   prometheus.Counter
}

var _ component.Lifecycle = (*Server)(nil)
var _ event.Sink = (*Server)(nil)

// New creates a viewer server from deps
func New(deps Deps) *Server {
	port := deps.Port
	if port == 0 {
		port = 8080
	}
	path := deps.Path
	if path == "" {
		path = "/ws"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "wsviewer")
	}

	s := &Server{
		port:   port,
		path:   path,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:   make(map[*websocket.Conn]*clientInfo),
		startTime: time.Now(),
	}

	if deps.Metrics != nil {
		s.clientsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "wsviewer",
			Name:      "clients_connected",
			Help:      "Currently connected viewer clients",
		})
		s.framesSent = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "wsviewer",
			Name:      "frames_sent_total",
			Help:      "Event frames sent to viewer clients",
		})
		_ = deps.Metrics.RegisterGauge("wsviewer", "clients_connected", s.clientsGauge)
		_ = deps.Metrics.RegisterCounter("wsviewer", "frames_sent", s.framesSent)
	}

	return s
}

// Meta returns the component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        fmt.Sprintf("wsviewer-%d", s.port),
		Type:        "output",
		Description: fmt.Sprintf("WebSocket viewer endpoint at ws://localhost:%d%s", s.port, s.path),
		Version:     "1.0.0",
	}
}

// Health returns the current health status of the component
func (s *Server) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    s.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(s.sendErrors.Load()),
		Uptime:     time.Since(s.startTime),
	}
}

// Initialize validates the configuration
func (s *Server) Initialize() error {
	if s.port < 1024 || s.port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "wsviewer", "Initialize",
			fmt.Sprintf("invalid port %d (out of range 1024-65535)", s.port))
	}
	if s.path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "wsviewer", "Initialize", "path validation")
	}
	return nil
}

// Start begins serving the WebSocket endpoint
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	s.shutdown = make(chan struct{})
	s.done = make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleConnection)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.running.Store(true)
	s.startTime = time.Now()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Viewer server failed", "error", err)
			s.running.Store(false)
		}
	}()

	s.logger.Info("Viewer endpoint listening", "addr", s.server.Addr, "path", s.path)
	return nil
}

// Stop shuts down the server and disconnects all clients
func (s *Server) Stop(timeout time.Duration) error {
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
	server := s.server
	done := s.done
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			return errors.WrapTransient(err, "wsviewer", "Stop", "server shutdown")
		}
	}

	s.clientsMu.Lock()
	for conn, client := range s.clients {
		s.closeClient(client)
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()
	if s.clientsGauge != nil {
		s.clientsGauge.Set(0)
	}

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"wsviewer", "Stop", "graceful shutdown")
	}
	return nil
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := &clientInfo{conn: conn, connectedAt: time.Now()}

	s.clientsMu.Lock()
	s.clients[conn] = client
	count := len(s.clients)
	s.clientsMu.Unlock()
	if s.clientsGauge != nil {
		s.clientsGauge.Set(float64(count))
	}

	s.logger.Info("Viewer connected", "remote", r.RemoteAddr, "clients", count)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readLoop(client)
	}()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pingLoop(client)
	}()
}

// readLoop drains inbound frames so control messages are processed;
// viewers are not expected to send data.
func (s *Server) readLoop(client *clientInfo) {
	defer s.removeClient(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) pingLoop(client *clientInfo) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdown:
			return
		case <-ticker.C:
			if client.closed.Load() {
				return
			}
			client.writeMu.Lock()
			err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			client.writeMu.Unlock()
			if err != nil {
				s.removeClient(client)
				return
			}
		}
	}
}

func (s *Server) removeClient(client *clientInfo) {
	s.closeClient(client)

	s.clientsMu.Lock()
	if _, ok := s.clients[client.conn]; ok {
		delete(s.clients, client.conn)
	}
	count := len(s.clients)
	s.clientsMu.Unlock()
	if s.clientsGauge != nil {
		s.clientsGauge.Set(float64(count))
	}
}

func (s *Server) closeClient(client *clientInfo) {
	client.closeOnce.Do(func() {
		client.closed.Store(true)
		_ = client.conn.Close()
	})
}

// Emit broadcasts one event to every connected viewer. Implements
// event.Sink. Safe to call before Start; there are simply no clients.
func (s *Server) Emit(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.sendErrors.Add(1)
		return
	}

	s.clientsMu.RLock()
	clients := make([]*clientInfo, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.RUnlock()

	for _, client := range clients {
		if client.closed.Load() {
			continue
		}
		client.writeMu.Lock()
		_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.writeMu.Unlock()

		if err != nil {
			s.sendErrors.Add(1)
			s.removeClient(client)
			continue
		}
		if s.framesSent != nil {
			s.framesSent.Inc()
		}
	}
}

// ClientCount returns the number of connected viewers
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
