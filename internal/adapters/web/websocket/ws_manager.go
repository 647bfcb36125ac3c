// Package websocket pushes assessment lifecycle events to connected clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tarkai/trustlens/internal/core/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Same-origin requests carry no Origin header.
		if origin == "" {
			return true
		}

		allowedOrigins := []string{
			"http://localhost:8080",
			"http://127.0.0.1:8080",
			"http://[::1]:8080",
		}
		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		slog.Warn("Rejected websocket origin", "origin", origin)
		return false
	},
}

// Message is the envelope for every event pushed over the socket.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatusEvent is the payload for assessment status transitions.
type StatusEvent struct {
	AssessmentID string                  `json:"assessment_id"`
	Status       domain.AssessmentStatus `json:"status"`
}

// Manager tracks connected clients and fans events out to all of them.
// It implements the pipeline's StatusNotifier.
type Manager struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewManager creates an empty connection manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[*websocket.Conn]struct{})}
}

// HandleWebSocket upgrades the request and registers the connection.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	slog.Info("Websocket connected", "remote", conn.RemoteAddr())

	// Drain reads until the peer goes away, then deregister.
	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
			slog.Info("Websocket disconnected", "remote", conn.RemoteAddr())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// NotifyStatus broadcasts a lifecycle transition to every client.
func (m *Manager) NotifyStatus(id string, status domain.AssessmentStatus) {
	m.broadcast(Message{
		Type:    "assessment.status",
		Payload: StatusEvent{AssessmentID: id, Status: status},
	})
}

// BroadcastLog sends an operational log line to every client.
func (m *Manager) BroadcastLog(message, level string) {
	m.broadcast(Message{
		Type:    "log",
		Payload: map[string]string{"message": message, "level": level},
	})
}

func (m *Manager) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Websocket marshal failed", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}
