package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/docstreams/errors"
	"github.com/c360/docstreams/middleware"
)

const (
	defaultHistoryLimit = 256
	writeTimeout        = 10 * time.Second
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHistoryLimit bounds the number of events replayed to new clients.
func WithHistoryLimit(limit int) Option {
	return func(m *Monitor) {
		if limit >= 0 {
			m.historyLimit = limit
		}
	}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Monitor is a WebSocket server broadcasting graph lifecycle events.
type Monitor struct {
	port         int
	path         string
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	historyLimit int

	mu      sync.Mutex
	running bool
	server  *http.Server
	clients map[*websocket.Conn]*client
	history []middleware.GraphEvent
}

// New creates a monitor serving on the given port and path.
func New(port int, path string, opts ...Option) (*Monitor, error) {
	if port < 1024 || port > 65535 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Monitor", "New",
			fmt.Sprintf("port %d out of range 1024-65535", port))
	}
	if path == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Monitor", "New", "path required")
	}

	m := &Monitor{
		port:   port,
		path:   path,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		historyLimit: defaultHistoryLimit,
		clients:      make(map[*websocket.Conn]*client),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Listener returns the callback to subscribe on a graph Notifier.
func (m *Monitor) Listener() middleware.Listener {
	return m.broadcast
}

// Handler returns the WebSocket upgrade handler. Exposed so the monitor
// can be mounted on an existing server instead of its own.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(m.handleWebSocket)
}

// Start launches the HTTP server in the background.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Monitor", "Start", "state check")
	}
	if err := ctx.Err(); err != nil {
		return errors.WrapInvalid(err, "Monitor", "Start", "context check")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(m.path, m.handleWebSocket)
	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.running = true

	go func(server *http.Server) {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("monitor server failed", "error", err)
		}
	}(m.server)

	m.logger.Info("monitor started", "port", m.port, "path", m.path)
	return nil
}

// Stop shuts the server down and closes every client connection.
func (m *Monitor) Stop(timeout time.Duration) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotStarted, "Monitor", "Stop", "state check")
	}
	m.running = false
	server := m.server
	m.server = nil
	for conn := range m.clients {
		_ = conn.Close()
	}
	m.clients = make(map[*websocket.Conn]*client)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Monitor", "Stop", "shutdown server")
	}
	m.logger.Info("monitor stopped")
	return nil
}

// broadcast records the event and sends it to every connected client.
// Failed writes drop the client; the graph build never blocks on a
// slow visualizer.
func (m *Monitor) broadcast(evt middleware.GraphEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		m.logger.Error("encode graph event", "error", err)
		return
	}

	m.mu.Lock()
	m.history = append(m.history, evt)
	if len(m.history) > m.historyLimit {
		m.history = m.history[len(m.history)-m.historyLimit:]
	}
	targets := make([]*client, 0, len(m.clients))
	for _, c := range m.clients {
		targets = append(targets, c)
	}
	m.mu.Unlock()

	for _, c := range targets {
		if err := m.send(c, data); err != nil {
			m.logger.Warn("dropping monitor client", "error", err)
			m.removeClient(c.conn)
		}
	}
}

func (m *Monitor) send(c *client, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (m *Monitor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	m.mu.Lock()
	m.clients[conn] = c
	replay := make([]middleware.GraphEvent, len(m.history))
	copy(replay, m.history)
	m.mu.Unlock()

	for _, evt := range replay {
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if err := m.send(c, data); err != nil {
			m.removeClient(conn)
			return
		}
	}

	go m.drainClient(c)
}

// drainClient consumes inbound frames so close and ping control
// messages are processed; the monitor has no client-to-server protocol.
func (m *Monitor) drainClient(c *client) {
	defer m.removeClient(c.conn)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *Monitor) removeClient(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.clients, conn)
	m.mu.Unlock()
	_ = conn.Close()
}
