package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
	"github.com/nexus-FayazKhan/Wattnest/internal/metrics"
)

// frame is the wire envelope shared with the client library.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Hub maintains room membership and routes events between connected
// sockets. Room membership is logical: a socket may sit in several rooms on
// one connection, and switching rooms client-side needs no leave signal.
type Hub struct {
	history      HistoryStore
	directory    *Directory
	historyLimit int
	logger       zerolog.Logger

	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
}

// NewHub creates a hub backed by the given history store and directory.
func NewHub(history HistoryStore, directory *Directory, historyLimit int, logger zerolog.Logger) *Hub {
	return &Hub{
		history:      history,
		directory:    directory,
		historyLimit: historyLimit,
		logger:       logger.With().Str("component", "hub").Logger(),
		rooms:        make(map[string]map[*Client]struct{}),
		clients:      make(map[*Client]struct{}),
	}
}

// Directory returns the connections directory.
func (h *Hub) Directory() *Directory { return h.directory }

// History returns the history store.
func (h *Hub) History() HistoryStore { return h.history }

// register adds a connected socket.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	metrics.SocketsActive.Inc()
	h.logger.Debug().Str("user", c.userID).Msg("socket connected")
}

// unregister removes a socket from every room it joined.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for roomID, members := range h.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.mu.Unlock()

	close(c.send)
	metrics.SocketsActive.Dec()
	h.logger.Debug().Str("user", c.userID).Msg("socket disconnected")
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// handleFrame dispatches one inbound frame from a socket.
func (h *Hub) handleFrame(c *Client, f frame) {
	switch f.Event {
	case chatsession.EventCreateRoom:
		h.handleCreateRoom(c, f.Data)
	case chatsession.EventGetMessages:
		h.handleGetMessages(c, f.Data)
	case chatsession.EventChatMessage:
		h.handleChatMessage(c, f.Data)
	default:
		metrics.DroppedFrames.WithLabelValues("unknown_event").Inc()
		h.logger.Debug().Str("event", f.Event).Msg("dropping unknown event")
	}
}

// handleCreateRoom joins the socket to the requested room, records the
// joiner's profile, and acks to that socket only.
func (h *Hub) handleCreateRoom(c *Client, data json.RawMessage) {
	var req chatsession.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		metrics.DroppedFrames.WithLabelValues("bad_join").Inc()
		h.send(c, chatsession.EventRoomCreated, chatsession.JoinAck{Success: false, RoomID: req.RoomID})
		return
	}

	h.mu.Lock()
	members, ok := h.rooms[req.RoomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[req.RoomID] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()

	if c.userID == "" {
		c.userID = req.UserID
	}
	h.directory.Record(req.UserID, req.Username, req.ImageURL)

	metrics.RoomsJoined.Inc()
	h.logger.Debug().Str("room", req.RoomID).Str("user", req.UserID).Msg("joined room")

	h.send(c, chatsession.EventRoomCreated, chatsession.JoinAck{Success: true, RoomID: req.RoomID})
}

// handleGetMessages replies with the room's history, tagged with the room
// id so the client can attribute late replies.
func (h *Hub) handleGetMessages(c *Client, data json.RawMessage) {
	var req chatsession.HistoryRequest
	if err := json.Unmarshal(data, &req); err != nil || req.RoomID == "" {
		metrics.DroppedFrames.WithLabelValues("bad_history_request").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := h.history.Room(ctx, req.RoomID, h.historyLimit)
	if err != nil {
		h.logger.Error().Err(err).Str("room", req.RoomID).Msg("history fetch failed")
		msgs = []chatsession.Message{}
	}

	metrics.HistoryRequests.Inc()
	h.send(c, chatsession.EventPreviousMessages, chatsession.HistoryResponse{
		RoomID:   req.RoomID,
		Messages: msgs,
	})
}

// handleChatMessage stamps, stores, and fans a message out to every member
// of its room, the sender included. The echo back to the sender is what the
// no-optimistic-append client renders from.
func (h *Hub) handleChatMessage(c *Client, data json.RawMessage) {
	var msg chatsession.Message
	if err := json.Unmarshal(data, &msg); err != nil || msg.RoomID == "" || msg.Body == "" {
		metrics.DroppedFrames.WithLabelValues("bad_message").Inc()
		return
	}

	msg.ID = ulid.Make().String()
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.history.Append(ctx, msg); err != nil {
		// Delivery still proceeds; history is best-effort.
		h.logger.Error().Err(err).Str("room", msg.RoomID).Msg("history append failed")
	}

	metrics.MessagesRelayed.Inc()
	h.broadcast(msg.RoomID, chatsession.EventChatMessage, msg)
}

// send queues one event to a single socket.
func (h *Hub) send(c *Client, event string, payload any) {
	raw, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("marshal failed")
		return
	}
	c.queue(raw)
}

// broadcast queues one event to every member of a room.
func (h *Hub) broadcast(roomID, event string, payload any) {
	raw, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("marshal failed")
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.queue(raw)
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame{Event: event, Data: data})
}
