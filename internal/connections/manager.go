package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TimeoutConfig holds the keepalive settings for relayed WebSocket streams
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts pings a little before the pong deadline expires
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second,
	WriteWait:  10 * time.Second,
}

// Manager tracks open WebSocket streams so they can be closed at shutdown
type Manager struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]struct{}
	timeouts    TimeoutConfig
	closed      bool
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		connections: make(map[*websocket.Conn]struct{}),
		timeouts:    timeouts,
	}
}

// AddConnection registers conn. It returns false once the manager has been
// shut down, in which case the caller owns closing conn.
func (m *Manager) AddConnection(conn *websocket.Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.connections[conn] = struct{}{}
	return true
}

func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.mu.Lock()
	delete(m.connections, conn)
	m.mu.Unlock()
}

func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[conn]
	return ok
}

func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

func (m *Manager) GetTimeouts() TimeoutConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeouts
}

func (m *Manager) SetTimeouts(timeouts TimeoutConfig) {
	m.mu.Lock()
	m.timeouts = timeouts
	m.mu.Unlock()
}

// CloseAll sends a going-away close frame to every tracked connection, closes
// it, and refuses new registrations.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	conns := make([]*websocket.Conn, 0, len(m.connections))
	for conn := range m.connections {
		conns = append(conns, conn)
	}
	m.connections = make(map[*websocket.Conn]struct{})
	writeWait := m.timeouts.WriteWait
	m.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	log.Info().Int("connections", len(conns)).Msg("Closing WebSocket streams")
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
	}
}
