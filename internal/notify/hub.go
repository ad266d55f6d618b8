package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/betbot/wfmtrader/internal/events"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the control plane listens on localhost only
	CheckOrigin: func(*http.Request) bool { return true },
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub broadcasts engine events to every connected websocket client. Slow
// clients drop frames instead of blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*hubClient
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*hubClient), now: time.Now}
}

// Publish implements ports.EventPublisher.
func (h *Hub) Publish(kind string, payload any) {
	b, err := json.Marshal(events.Envelope{Kind: kind, Payload: payload, Timestamp: h.now()})
	if err != nil {
		log.Warnf("marshal %s event: %v", kind, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- b:
		default:
			log.Debugf("client %s is slow, dropping %s", c.id, kind)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events until the client leaves.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}
	c := &hubClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Infof("websocket client %s connected", c.id)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	h.mu.Unlock()
}

// readPump discards client input and notices disconnects.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		log.Infof("websocket client %s disconnected", c.id)
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.close()
	}
}
