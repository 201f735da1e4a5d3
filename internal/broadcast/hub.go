package broadcast

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

const (
	clientBuffer = 8
	writeWait    = 10 * time.Second
)

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams route geometry to browser clients over websockets. A client
// that connects after a publish receives the most recent route first.
type Hub struct {
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
	failures prometheus.Counter

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	last    []byte
	closed  bool
}

// NewHub returns an empty hub. failures may be nil.
func NewHub(logger logrus.FieldLogger, failures prometheus.Counter) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:      logger,
		failures: failures,
		clients:  make(map[*hubClient]struct{}),
	}
}

// Publish queues the route for every connected client. A client whose
// queue is full misses this route.
func (h *Hub) Publish(points []models.Coordinate) error {
	payload, err := EncodeRoute(points)
	if err != nil {
		return fmt.Errorf("hub: encode route: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = payload
	dropped := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		if h.failures != nil {
			h.failures.Add(float64(dropped))
		}
		return fmt.Errorf("hub: dropped route for %d slow clients", dropped)
	}
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, clientBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}
	h.log.WithField("remote", r.RemoteAddr).Info("Route stream client connected")

	go h.writeLoop(c)

	// Clients never send anything useful; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	h.log.WithField("remote", r.RemoteAddr).Info("Route stream client disconnected")
}

func (h *Hub) register(c *hubClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	return true
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.WithError(err).Debug("Route stream write failed")
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
