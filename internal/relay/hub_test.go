package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexus-FayazKhan/Wattnest/chatsession"
)

// newTestRelay starts a hub behind an httptest server and returns the
// websocket URL clients should dial.
func newTestRelay(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(NewMemoryHistory(100), NewDirectory(nil), 100, zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// dial connects a raw transport with buffered channels capturing the three
// inbound event kinds.
type relayConn struct {
	tr       *chatsession.WSTransport
	acks     chan chatsession.JoinAck
	history  chan chatsession.HistoryResponse
	messages chan chatsession.Message
}

func dial(t *testing.T, wsURL string) *relayConn {
	t.Helper()
	rc := &relayConn{
		tr:       chatsession.NewWSTransport(wsURL, zerolog.Nop()),
		acks:     make(chan chatsession.JoinAck, 8),
		history:  make(chan chatsession.HistoryResponse, 8),
		messages: make(chan chatsession.Message, 8),
	}
	rc.tr.On(chatsession.EventRoomCreated, func(data json.RawMessage) {
		var ack chatsession.JoinAck
		json.Unmarshal(data, &ack)
		rc.acks <- ack
	})
	rc.tr.On(chatsession.EventPreviousMessages, func(data json.RawMessage) {
		var hist chatsession.HistoryResponse
		json.Unmarshal(data, &hist)
		rc.history <- hist
	})
	rc.tr.On(chatsession.EventChatMessage, func(data json.RawMessage) {
		var msg chatsession.Message
		json.Unmarshal(data, &msg)
		rc.messages <- msg
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.tr.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rc.tr.Close() })
	return rc
}

func (rc *relayConn) join(t *testing.T, roomID, userID, username string) {
	t.Helper()
	err := rc.tr.Emit(chatsession.EventCreateRoom, chatsession.JoinRequest{
		RoomID: roomID, UserID: userID, Username: username,
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case ack := <-rc.acks:
		if !ack.Success || ack.RoomID != roomID {
			t.Fatalf("unexpected join ack: %+v", ack)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for join ack for %s", roomID)
	}
}

func TestRelayJoinAndAck(t *testing.T) {
	hub, wsURL := newTestRelay(t)

	rc := dial(t, wsURL)
	rc.join(t, "alice-bob", "alice", "Alice")

	if hub.RoomCount() != 1 {
		t.Fatalf("expected 1 active room, got %d", hub.RoomCount())
	}
	if hub.Directory().Count() != 1 {
		t.Fatalf("join should record the joiner, directory has %d users", hub.Directory().Count())
	}
}

func TestRelayHistoryRoundTrip(t *testing.T) {
	hub, wsURL := newTestRelay(t)

	// Seed history directly.
	hub.History().Append(context.Background(), chatsession.Message{
		RoomID: "alice-bob", SenderID: "bob", SenderName: "Bob",
		Body: "welcome", Timestamp: 111,
	})

	rc := dial(t, wsURL)
	rc.join(t, "alice-bob", "alice", "Alice")

	if err := rc.tr.Emit(chatsession.EventGetMessages, chatsession.HistoryRequest{RoomID: "alice-bob"}); err != nil {
		t.Fatal(err)
	}

	select {
	case hist := <-rc.history:
		if hist.RoomID != "alice-bob" {
			t.Fatalf("history must be tagged with its room id, got %q", hist.RoomID)
		}
		if len(hist.Messages) != 1 || hist.Messages[0].Body != "welcome" {
			t.Fatalf("unexpected history: %+v", hist.Messages)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for history")
	}
}

func TestRelayBroadcastIncludesSender(t *testing.T) {
	_, wsURL := newTestRelay(t)

	sender := dial(t, wsURL)
	peer := dial(t, wsURL)
	sender.join(t, "alice-bob", "alice", "Alice")
	peer.join(t, "alice-bob", "bob", "Bob")

	out := chatsession.Message{
		RoomID: "alice-bob", SenderID: "alice", SenderName: "Alice",
		Body: "hello", SenderRole: chatsession.RoleMentee, Timestamp: 222,
	}
	if err := sender.tr.Emit(chatsession.EventChatMessage, out); err != nil {
		t.Fatal(err)
	}

	for name, ch := range map[string]chan chatsession.Message{"sender": sender.messages, "peer": peer.messages} {
		select {
		case msg := <-ch:
			if msg.Body != "hello" || msg.SenderID != "alice" || msg.Timestamp != 222 {
				t.Fatalf("%s received unexpected message: %+v", name, msg)
			}
			if msg.ID == "" {
				t.Fatalf("%s: relay should stamp a message id", name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not receive the broadcast", name)
		}
	}
}

func TestRelayDoesNotLeakAcrossRooms(t *testing.T) {
	_, wsURL := newTestRelay(t)

	ab := dial(t, wsURL)
	ac := dial(t, wsURL)
	ab.join(t, "alice-bob", "bob", "Bob")
	ac.join(t, "alice-carol", "carol", "Carol")

	err := ab.tr.Emit(chatsession.EventChatMessage, chatsession.Message{
		RoomID: "alice-bob", SenderID: "bob", Body: "private", Timestamp: 333,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The alice-bob member sees it...
	select {
	case <-ab.messages:
	case <-time.After(2 * time.Second):
		t.Fatal("room member did not receive the message")
	}
	// ...the alice-carol member never does.
	select {
	case msg := <-ac.messages:
		t.Fatalf("message leaked across rooms: %+v", msg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRelayStampsMissingTimestamp(t *testing.T) {
	hub, wsURL := newTestRelay(t)

	rc := dial(t, wsURL)
	rc.join(t, "r", "u", "U")

	if err := rc.tr.Emit(chatsession.EventChatMessage, chatsession.Message{
		RoomID: "r", SenderID: "u", Body: "no ts",
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-rc.messages:
		if msg.Timestamp == 0 {
			t.Fatal("relay should stamp a timestamp when the client omits one")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}

	msgs, _ := hub.History().Room(context.Background(), "r", 0)
	if len(msgs) != 1 {
		t.Fatalf("broadcast message should land in history, got %d", len(msgs))
	}
}

func TestRelayFullSessionAgainstManager(t *testing.T) {
	// The real client-side Manager against the real relay.
	_, wsURL := newTestRelay(t)

	echoed := make(chan chatsession.Message, 1)
	self := chatsession.Identity{ID: "alice", Name: "Alice"}
	tr := chatsession.NewWSTransport(wsURL, zerolog.Nop())
	session := chatsession.NewManager(tr, self, zerolog.Nop(),
		chatsession.WithCallbacks(chatsession.Callbacks{
			OnAppend: func(msg chatsession.Message) { echoed <- msg },
		}))
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := session.SelectConversation(chatsession.Participant{ID: "bob", Name: "Bob", Role: chatsession.RoleMentor}); err != nil {
		t.Fatal(err)
	}

	// Frames on one connection are processed in order, so the join is
	// handled before the message reaches the hub.
	if err := session.SendMessage("hello bob"); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-echoed:
		if msg.Body != "hello bob" || msg.SenderRole != chatsession.RoleMentee {
			t.Fatalf("unexpected echo: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the sent message to come back through delivery")
	}

	if got := session.Messages(); len(got) != 1 {
		t.Fatalf("expected exactly 1 message after echo, got %d", len(got))
	}
}
