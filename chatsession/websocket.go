package chatsession

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// frame is the wire envelope for every event in either direction.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const sendBuffer = 256

// WSTransport is a websocket implementation of Transport. A single reader
// goroutine dispatches inbound events to handlers in arrival order; writes
// go through a buffered pump so Emit never blocks on the network.
type WSTransport struct {
	url    string
	logger zerolog.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string][]HandlerFunc
	send     chan []byte
	done     chan struct{}
	closed   bool
}

// NewWSTransport creates a transport that will dial the given websocket URL.
func NewWSTransport(url string, logger zerolog.Logger) *WSTransport {
	return &WSTransport{
		url:      url,
		logger:   logger.With().Str("component", "transport").Logger(),
		handlers: make(map[string][]HandlerFunc),
	}
}

// On registers a handler for a named event.
func (t *WSTransport) On(event string, fn HandlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[event] = append(t.handlers[event], fn)
}

// Connect dials the relay. Idempotent while the connection is live: a second
// call returns nil without dialing again. After a connection failure the
// transport is reset, and a later Connect dials a fresh connection.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		return nil
	}
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("transport: connect after close")
	}
	t.mu.Unlock()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("transport: dial %s: %w (status %d)", t.url, err, resp.StatusCode)
		}
		return fmt.Errorf("transport: dial %s: %w", t.url, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return fmt.Errorf("transport: connect after close")
	}
	send := make(chan []byte, sendBuffer)
	done := make(chan struct{})
	t.conn = conn
	t.send = send
	t.done = done
	t.mu.Unlock()

	go t.writePump(conn, send, done)
	go t.readPump(conn)

	t.logger.Debug().Str("url", t.url).Msg("connected")
	return nil
}

// Emit sends a named event. Returns an error if the transport is not
// connected or the payload cannot be marshaled.
func (t *WSTransport) Emit(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("transport: marshal %s payload: %w", event, err)
	}
	msg, err := json.Marshal(frame{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("transport: marshal %s frame: %w", event, err)
	}

	t.mu.Lock()
	send, done := t.send, t.done
	connected := t.conn != nil
	t.mu.Unlock()

	if !connected {
		return fmt.Errorf("transport: emit %s: not connected", event)
	}

	select {
	case send <- msg:
		return nil
	case <-done:
		return fmt.Errorf("transport: emit %s: connection closed", event)
	}
}

// Close releases the connection. Safe to call multiple times.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	done := t.done
	t.conn = nil
	t.mu.Unlock()

	if done != nil {
		close(done)
	}
	if conn != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return conn.Close()
	}
	return nil
}

func (t *WSTransport) readPump(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.teardown(conn, err)
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.logger.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		t.dispatch(f.Event, f.Data)
	}
}

// teardown resets the transport after a read failure: the connection is
// cleared so a later Connect dials again, the write pump is stopped, and
// pending Emits fail instead of queueing into a dead buffer. A user-initiated
// Close has already torn the connection down; then nothing is reset and no
// error is surfaced.
func (t *WSTransport) teardown(conn *websocket.Conn, err error) {
	t.mu.Lock()
	if t.closed || t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	done := t.done
	t.done = nil
	t.send = nil
	t.mu.Unlock()

	close(done)
	conn.Close()

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		t.logger.Warn().Err(err).Msg("read failed")
	}
	errData, _ := json.Marshal(ConnectError{Message: err.Error()})
	t.dispatch(EventConnectError, errData)
}

func (t *WSTransport) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	for {
		select {
		case msg := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.logger.Warn().Err(err).Msg("write failed")
				return
			}
		case <-done:
			return
		}
	}
}

// dispatch invokes every handler registered for event, sequentially. Called
// only from the reader goroutine, so handler invocations never overlap.
func (t *WSTransport) dispatch(event string, data json.RawMessage) {
	t.mu.Lock()
	fns := t.handlers[event]
	t.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}
