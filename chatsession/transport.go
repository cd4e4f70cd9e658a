package chatsession

import (
	"context"
	"encoding/json"
)

// Event names on the relay protocol.
const (
	EventCreateRoom       = "createRoom"       // out: request room membership
	EventRoomCreated      = "roomCreated"      // in: join confirmation
	EventGetMessages      = "getMessages"      // out: request room history
	EventPreviousMessages = "previousMessages" // in: bulk history
	EventChatMessage      = "chatMessage"      // out/in: publish / deliver a message
	EventConnectError     = "connect_error"    // in: transport failure, raised locally
)

// HandlerFunc receives the raw JSON payload of a named event. Handlers for a
// single transport are invoked sequentially, in arrival order.
type HandlerFunc func(data json.RawMessage)

// Transport is a duplex event channel to the realtime messaging service.
// Delivery is at most once per registered handler; the connection is
// unreliable and must be explicitly released with Close.
type Transport interface {
	// Connect establishes the connection. Calling Connect on an already
	// connected transport is a no-op.
	Connect(ctx context.Context) error

	// Emit sends a named event with a JSON-marshalable payload.
	Emit(event string, data any) error

	// On registers a handler for a named event. Registration is not safe
	// after Connect has returned; wire all handlers first.
	On(event string, fn HandlerFunc)

	// Close releases the connection. Safe to call multiple times and safe
	// to call on a transport that never connected.
	Close() error
}

// JoinRequest is the createRoom payload.
type JoinRequest struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl"`
}

// JoinAck is the roomCreated payload.
type JoinAck struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
}

// HistoryRequest is the getMessages payload.
type HistoryRequest struct {
	RoomID string `json:"roomId"`
}

// HistoryResponse is the previousMessages payload. The relay tags the
// response with the room id so a reply that arrives after a room switch can
// be attributed and discarded.
type HistoryResponse struct {
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}

// ConnectError is the connect_error payload.
type ConnectError struct {
	Message string `json:"message"`
}
