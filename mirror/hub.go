package mirror

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsIdlePingInterval = 30 * time.Second

type wsMessage struct {
	Type     string          `json:"type"`
	ClientID string          `json:"client_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) sendJSON(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Hub pushes the latest session state to every connected socket. Publish
// never blocks; bursts coalesce into the newest payload.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
	wake    chan struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		wake:    make(chan struct{}, 1),
		logger:  logger,
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return
		case <-h.wake:
			h.mu.Lock()
			payload := h.latest
			for c := range h.clients {
				c.sendJSON(wsMessage{Type: "state", Payload: payload})
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) Publish(payload []byte) {
	h.mu.Lock()
	h.latest = payload
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	c.sendJSON(wsMessage{Type: "hello", ClientID: c.id})
	if h.latest != nil {
		c.sendJSON(wsMessage{Type: "state", Payload: h.latest})
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Clients counts connected sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "error", err)
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 16)}
	h.register(c)
	h.logger.Info("mirror client connected", "client", c.id, "remote", r.RemoteAddr)

	go func() {
		defer conn.Close()
		if err := writeWithHeartbeat(conn, c.send); err != nil {
			h.logger.Debug("mirror write", "client", c.id, "error", err)
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			h.logger.Info("mirror client gone", "client", c.id)
			return
		}
	}
}

func writeWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(wsMessage{Type: "ping"})

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
