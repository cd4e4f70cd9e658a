package relay

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nexus-FayazKhan/Wattnest/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // cross-origin SPA clients; CORS is handled at the router
	},
}

// Client is one connected websocket.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	mu     sync.Mutex
	closed bool
}

// ServeWS upgrades an HTTP request to a websocket and runs the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register(client)

	go client.writePump()
	go client.readPump()
}

// queue enqueues an outbound frame, dropping it if the socket is closing
// or its buffer is full. A slow consumer never blocks the hub.
func (c *Client) queue(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		metrics.DroppedFrames.WithLabelValues("slow_consumer").Inc()
	}
}

// markClosed stops further queueing; called before the send channel closes.
func (c *Client) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Client) readPump() {
	defer func() {
		c.markClosed()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			metrics.DroppedFrames.WithLabelValues("malformed").Inc()
			continue
		}
		c.hub.handleFrame(c, f)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
