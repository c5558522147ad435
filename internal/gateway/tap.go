package gateway

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one event pushed to tap subscribers.
type Frame struct {
	Type    string `json:"type"` // always "event"
	Event   string `json:"event"`
	Seq     int    `json:"seq"`
	Payload any    `json:"payload,omitempty"`
}

// Conn is a single tap subscriber.
type Conn struct {
	ID          string
	WS          *websocket.Conn
	writeMu     sync.Mutex
	ConnectedAt time.Time
}

// Send writes a frame to the WebSocket connection (thread-safe).
func (c *Conn) Send(frame Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.WS.WriteJSON(frame)
}

// ConnManager tracks the ops clients watching the pipeline event tap.
type ConnManager struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	seq   int
}

func NewConnManager() *ConnManager {
	return &ConnManager{conns: make(map[string]*Conn)}
}

func (m *ConnManager) Add(conn *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.ID] = conn
}

func (m *ConnManager) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

// Count returns the number of connected subscribers.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Broadcast sends an event to all subscribers.
func (m *ConnManager) Broadcast(event string, payload any) {
	m.mu.Lock()
	m.seq++
	frame := Frame{Type: "event", Event: event, Seq: m.seq, Payload: payload}
	conns := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Send(frame); err != nil {
			slog.Warn("tap broadcast failed", "conn", conn.ID, "error", err)
		}
	}
}

// ginTap upgrades an authenticated ops client to a WebSocket that streams
// pipeline events. Disabled unless an ops token is configured.
func (s *Server) ginTap(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		token = c.Query("token")
	}
	if s.Config.Ops.Token == "" || token != s.Config.Ops.Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := &Conn{
		ID:          uuid.NewString(),
		WS:          ws,
		ConnectedAt: time.Now(),
	}
	s.Tap.Add(conn)
	slog.Info("tap client connected", "conn", conn.ID)

	defer func() {
		s.Tap.Remove(conn.ID)
		ws.Close()
		slog.Info("tap client disconnected", "conn", conn.ID)
	}()

	// Subscribers only listen; drain reads until the peer goes away.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
