package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type NoticeKind string

const (
	NoticeSuccess  NoticeKind = "success"
	NoticeError    NoticeKind = "error"
	NoticeWarning  NoticeKind = "warning"
	NoticeInfo     NoticeKind = "info"
	NoticeCritical NoticeKind = "critical"
)

// Notice is a short-lived, presentation-only message. It carries no state
// beyond an auto-dismiss duration.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Message   string     `json:"message"`
	DismissMS int64      `json:"dismiss_ms"`
	At        time.Time  `json:"at"`
}

const defaultDismiss = 5 * time.Second

// Hub fans notices out to connected dashboard sockets. Slow clients are
// dropped rather than back-pressuring the publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool

	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	send chan Notice
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish broadcasts a notice to every connected client. Never blocks.
func (h *Hub) Publish(kind NoticeKind, message string) {
	n := Notice{
		Kind:      kind,
		Message:   message,
		DismissMS: defaultDismiss.Milliseconds(),
		At:        time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- n:
		default:
			// Client not draining; drop it.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeWS upgrades the request and attaches the socket to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan Notice, 32)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for n := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(n); err != nil {
			h.detach(c)
			return
		}
	}
}

// readPump discards inbound frames and detaches on close.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.detach(c)
			return
		}
	}
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount reports attached sockets (used by tests and the health probe).
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
