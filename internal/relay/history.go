// Package relay implements the reference realtime messaging service the
// chatsession client talks to: room membership over websockets, per-room
// message history, and a directory of known users.
package relay

import (
	"context"
	"sync"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
)

// HistoryStore keeps per-room message history in chronological order.
// Implemented by MemoryHistory and SQLiteHistory.
type HistoryStore interface {
	// Append stores a message. The message already carries its id and
	// timestamp.
	Append(ctx context.Context, msg chatsession.Message) error

	// Room returns up to limit most recent messages for a room, oldest
	// first. A room with no history yields an empty slice, not an error.
	Room(ctx context.Context, roomID string, limit int) ([]chatsession.Message, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// MemoryHistory is a bounded in-memory HistoryStore. The default when no
// HISTORY_DB is configured.
type MemoryHistory struct {
	mu    sync.Mutex
	limit int
	rooms map[string][]chatsession.Message
}

// NewMemoryHistory creates an in-memory store keeping at most limit
// messages per room.
func NewMemoryHistory(limit int) *MemoryHistory {
	if limit <= 0 {
		limit = 500
	}
	return &MemoryHistory{
		limit: limit,
		rooms: make(map[string][]chatsession.Message),
	}
}

// Append stores a message, evicting the oldest once the room cap is hit.
func (s *MemoryHistory) Append(_ context.Context, msg chatsession.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.rooms[msg.RoomID], msg)
	if len(msgs) > s.limit {
		msgs = msgs[len(msgs)-s.limit:]
	}
	s.rooms[msg.RoomID] = msgs
	return nil
}

// Room returns up to limit most recent messages, oldest first.
func (s *MemoryHistory) Room(_ context.Context, roomID string, limit int) ([]chatsession.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.rooms[roomID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]chatsession.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryHistory) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryHistory) Close() error { return nil }
